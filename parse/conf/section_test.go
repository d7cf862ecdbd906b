package conf

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

// nestedSections builds n sections nested one inside the next, with a
// single key in the innermost body.
func nestedSections(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "level%d x {\n", i)
	}
	b.WriteString("leaf = 1\n")
	for i := 0; i < n; i++ {
		b.WriteString("}\n")
	}
	return b.String()
}

// collectBody reads classified lines until the section-end matching the
// already-consumed opening line, exclusive, or until end of input.
func collectBody(c *Config) []Line {
	var out []Line
	depth := 0
	var l Line
	for c.ReadLine(&l) {
		switch l.Type {
		case LineSectionEnd:
			if depth == 0 {
				return out
			}
			depth--
		case LineSection:
			depth++
		}
		out = append(out, l)
	}
	return out
}

func TestSkipSection(t *testing.T) {
	convey.Convey("skip discards a nested body and lands past its close", t, func() {
		src := `outer x {
    a = 1
    inner y {
        b = 2
    }
}
after = 3
`
		c, err := Open(writeConf(t, src))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		convey.So(l.Type, convey.ShouldEqual, LineSection)
		convey.So(c.SkipSection(&l), convey.ShouldBeTrue)

		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		convey.So(l.Key, convey.ShouldEqual, "after")
		convey.So(l.Value, convey.ShouldEqual, "3")
	})

	convey.Convey("skip refuses a non-section line", t, func() {
		c, err := Open(writeConf(t, "a = 1\n"))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		convey.So(c.SkipSection(&l), convey.ShouldBeFalse)
		convey.So(c.Err(), convey.ShouldBeNil)
	})

	convey.Convey("an unterminated section fails without a sticky error", t, func() {
		c, err := Open(writeConf(t, "outer x {\na = 1\n"))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		convey.So(c.SkipSection(&l), convey.ShouldBeFalse)
		convey.So(c.Err(), convey.ShouldBeNil)
	})
}

func TestSectionDepthLimit(t *testing.T) {
	convey.Convey("ten levels of nesting skip fine", t, func() {
		c, err := Open(writeConf(t, nestedSections(10)))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		convey.So(c.SkipSection(&l), convey.ShouldBeTrue)
		convey.So(c.Err(), convey.ShouldBeNil)
	})

	convey.Convey("eleven levels exceed the recursion guard", t, func() {
		c, err := Open(writeConf(t, nestedSections(11)))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		convey.So(c.SkipSection(&l), convey.ShouldBeFalse)
		convey.So(errors.Is(c.Err(), ErrSectionTooDeep), convey.ShouldBeTrue)
	})

	convey.Convey("ten levels isolate fine, eleven do not", t, func() {
		c, err := Open(writeConf(t, nestedSections(10)))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		sub, ok := c.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeTrue)
		sub.Close()

		c2, err := Open(writeConf(t, nestedSections(11)))
		convey.So(err, convey.ShouldBeNil)
		defer c2.Close()

		convey.So(c2.ReadLine(&l), convey.ShouldBeTrue)
		_, ok = c2.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeFalse)
		// The depth error is already sticky when isolation unwinds, and the
		// first error wins.
		convey.So(errors.Is(c2.Err(), ErrSectionTooDeep), convey.ShouldBeTrue)
	})
}

func TestIsolateSection(t *testing.T) {
	src := `outer x {
    a = 1
    inner y {
        b = 2
    }
}
after = 3
`

	convey.Convey("isolate returns a cursor bounded to the section body", t, func() {
		c, err := Open(writeConf(t, src))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		sub, ok := c.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeTrue)
		defer sub.Close()

		got := collectBody(sub)
		convey.So(len(got), convey.ShouldEqual, 4)
		convey.So(got[0].Key, convey.ShouldEqual, "a")
		convey.So(got[1].Name, convey.ShouldEqual, "inner")
		convey.So(got[2].Key, convey.ShouldEqual, "b")
		convey.So(got[3].Type, convey.ShouldEqual, LineSectionEnd)

		// The bound, not the file, ends the isolated cursor.
		convey.So(sub.ReadLine(&l), convey.ShouldBeFalse)
		convey.So(sub.Err(), convey.ShouldBeNil)
	})

	convey.Convey("isolate and manual descent agree on the body", t, func() {
		path := writeConf(t, src)

		c, err := Open(path)
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		sub, ok := c.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeTrue)
		defer sub.Close()

		// The original cursor was reset to the body start, so descending
		// manually must see the same classified lines.
		manual := collectBody(c)
		isolated := collectBody(sub)
		convey.So(isolated, convey.ShouldResemble, manual)
	})

	convey.Convey("the original cursor still skips the section afterward", t, func() {
		c, err := Open(writeConf(t, src))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		opening := l
		sub, ok := c.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeTrue)
		sub.Close()

		convey.So(c.SkipSection(&opening), convey.ShouldBeTrue)
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		convey.So(l.Key, convey.ShouldEqual, "after")
	})

	convey.Convey("isolating an empty section yields an exhausted cursor", t, func() {
		c, err := Open(writeConf(t, "empty x {\n}\nafter = 1\n"))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		sub, ok := c.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeTrue)
		defer sub.Close()

		convey.So(sub.ReadLine(&l), convey.ShouldBeFalse)
		convey.So(sub.Err(), convey.ShouldBeNil)
	})

	convey.Convey("isolating an unterminated section fails with the generic error", t, func() {
		c, err := Open(writeConf(t, "outer x {\na = 1\n"))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		_, ok := c.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeFalse)
		convey.So(errors.Is(c.Err(), ErrIsolateSection), convey.ShouldBeTrue)
	})
}

func TestIsolatedCursorsAreIndependent(t *testing.T) {
	convey.Convey("two isolated cursors can be drained concurrently", t, func() {
		src := `first a {
    x = 1
    y = 2
}
second b {
    z = 3
}
`
		c, err := Open(writeConf(t, src))
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()

		var l Line
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		opening := l
		sub1, ok := c.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeTrue)
		defer sub1.Close()

		convey.So(c.SkipSection(&opening), convey.ShouldBeTrue)
		convey.So(c.ReadLine(&l), convey.ShouldBeTrue)
		sub2, ok := c.IsolateSection(&l)
		convey.So(ok, convey.ShouldBeTrue)
		defer sub2.Close()

		counts := make([]int, 2)
		var wg sync.WaitGroup
		for i, sub := range []*Config{sub1, sub2} {
			wg.Add(1)
			go func(i int, sub *Config) {
				defer wg.Done()
				var l Line
				for sub.ReadLine(&l) {
					if l.Type == LineKeyValue {
						counts[i]++
					}
				}
			}(i, sub)
		}
		wg.Wait()

		convey.So(counts[0], convey.ShouldEqual, 2)
		convey.So(counts[1], convey.ShouldEqual, 1)
	})
}
