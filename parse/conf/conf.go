package conf

// conf 包实现了一个流式的层级配置文件解析器，具有逐行分类、嵌套 section 与安全的字节级隔离视图。
//
// 范围：
// - 逐行流式解析（section 开始 / section 结束 / key=value）
// - # 行注释与空行跳过
// - ''' 多行字符串累积
// - 平衡 section 的跳过（skip）与字节级隔离（isolate）
// - 首错优先的粘性错误协议
// - 标量转换辅助函数（整数 / 布尔 / 时间周期）
//
// 非目标（设计如此）：
// - schema 校验
// - 映射到类型化结构体
// - include 文件解析与环境变量替换
// - 热加载与回写序列化
//
// 此实现适用于生产环境，作为配置摄取层。

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// =========================
// Errors
// =========================

var (
	ErrMalformedSection      = errors.New("malformed section opening")
	ErrExpectingKeyValue     = errors.New("expecting section or key=value")
	ErrUnterminatedMultiline = errors.New("unexpected end of input while scanning multiline string")
	ErrSectionTooDeep        = errors.New("recursion level too deep")
	ErrIsolateSection        = errors.New("unknown error while isolating section")
)

// =========================
// Classified Lines
// =========================

type LineType uint8

const (
	LineSection LineType = iota
	LineSectionEnd
	LineKeyValue
)

// Line is one classified logical line. It is reused across ReadLine calls;
// Type determines which fields are meaningful (Name/Param for LineSection,
// Key/Value for LineKeyValue, none for LineSectionEnd).
type Line struct {
	Type  LineType
	Name  string
	Param string
	Key   string
	Value string
}

const multilineSentinel = "'''"

// =========================
// Cursor
// =========================

// Config is a parsing cursor bound to one open stream, covering the whole
// file or an isolated byte range of it. A Config is not safe for concurrent
// use; distinct cursors (including isolated ones) share no state and may be
// driven from different goroutines.
//
// Once any operation fails, the cursor is permanently failed: every later
// read returns false without touching the stream, and Err reports the first
// error. Callers must close and discard a failed cursor.
type Config struct {
	file        *os.File
	reader      *bufio.Reader
	path        string
	strbuf      bytes.Buffer
	pos         int64
	isolatedEnd int64
	line        int
	err         error
}

// Open creates a cursor reading the configuration file at path.
func Open(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("conf: open %s: %w", path, err)
	}

	return &Config{
		file:        f,
		reader:      bufio.NewReader(f),
		path:        path,
		isolatedEnd: -1,
	}, nil
}

// Close releases the underlying stream. It is a no-op on a nil or
// already-closed cursor.
func (c *Config) Close() error {
	if c == nil || c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	c.reader = nil
	c.strbuf.Reset()

	return err
}

// Err returns the sticky error, or nil if the cursor is still healthy.
func (c *Config) Err() error { return c.err }

// Line returns the 1-based count of physical lines consumed so far.
func (c *Config) Line() int { return c.line }

// Path returns the path the cursor was opened on.
func (c *Config) Path() string { return c.path }

// fail records err as the sticky error. The first error wins; later
// failures are ignored.
func (c *Config) fail(err error) {
	if c.err == nil {
		c.err = fmt.Errorf("conf:%d: %w", c.line, err)
	}
}

// readRawLine reads one physical line, newline included. It returns false
// at end of input, at the isolation bound, or on a stream error (sticky).
func (c *Config) readRawLine() (string, bool) {
	if c.reader == nil {
		return "", false
	}
	raw, err := c.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		c.fail(err)
		return "", false
	}
	if raw == "" {
		return "", false
	}
	c.pos += int64(len(raw))
	if c.isolatedEnd >= 0 && c.pos >= c.isolatedEnd {
		return "", false
	}
	c.line++

	return raw, true
}

// seekTo repositions the stream and resets the buffered reader so the next
// read starts at off.
func (c *Config) seekTo(off int64) error {
	if _, err := c.file.Seek(off, io.SeekStart); err != nil {
		return err
	}
	c.reader.Reset(c.file)
	c.pos = off

	return nil
}

// =========================
// Line Classifier
// =========================

// ReadLine reads the next logical line into l, skipping blank and
// comment-only lines. It follows the bufio.Scanner idiom: false means end
// of input when Err returns nil, or a parse/stream failure otherwise.
func (c *Config) ReadLine(l *Line) bool {
	if c.err != nil {
		return false
	}

	var line string
	for {
		raw, ok := c.readRawLine()
		if !ok {
			return false
		}
		// Everything from the last '#' onward is a comment; there is no
		// escaping.
		if i := strings.LastIndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		line = strings.TrimSpace(raw)
		if line != "" {
			break
		}
	}

	switch {
	case line[len(line)-1] == '{':
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			c.fail(ErrMalformedSection)
			return false
		}
		*l = Line{
			Type:  LineSection,
			Name:  strings.TrimSpace(line[:sp]),
			Param: strings.TrimSpace(line[sp+1 : len(line)-1]),
		}
	case line == "}":
		*l = Line{Type: LineSectionEnd}
	default:
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			c.fail(ErrExpectingKeyValue)
			return false
		}
		*l = Line{
			Type:  LineKeyValue,
			Key:   strings.ReplaceAll(strings.TrimSpace(line[:eq]), " ", "_"),
			Value: strings.TrimLeft(line[eq+1:], " \t"),
		}
		if l.Value == multilineSentinel {
			if !c.readMultiline(l) {
				return false
			}
		}
	}

	return true
}

// =========================
// Multiline Accumulator
// =========================

// readMultiline consumes raw lines until the closing sentinel, joining them
// with single newline separators into the cursor's scratch buffer. Lines
// are trimmed only for terminator detection; the stored content keeps the
// raw line text.
func (c *Config) readMultiline(l *Line) bool {
	c.strbuf.Reset()
	for {
		raw, ok := c.readRawLine()
		if !ok {
			c.fail(ErrUnterminatedMultiline)
			return false
		}
		if strings.TrimSpace(raw) == multilineSentinel {
			l.Value = c.strbuf.String()
			return true
		}
		c.strbuf.WriteString(strings.TrimRight(raw, "\r\n"))
		c.strbuf.WriteByte('\n')
	}
}

// =========================
// Section Navigator
// =========================

// maxSectionDepth guards against pathological input, not legal nesting:
// sections ten levels deep still parse, eleven fail.
const maxSectionDepth = 10

// SkipSection discards the body of the section whose opening line is line,
// including nested sub-sections, leaving the cursor just past the matching
// closing brace. It returns false with a nil Err on an unterminated
// section; surfacing that is the caller's responsibility.
func (c *Config) SkipSection(line *Line) bool {
	if c.err != nil {
		return false
	}
	if line.Type != LineSection {
		return false
	}

	return c.findSectionEnd(line, 1)
}

func (c *Config) findSectionEnd(line *Line, depth int) bool {
	if depth > maxSectionDepth {
		c.fail(ErrSectionTooDeep)
		return false
	}
	for c.ReadLine(line) {
		switch line.Type {
		case LineKeyValue:
			continue
		case LineSection:
			if !c.findSectionEnd(line, depth+1) {
				return false
			}
		case LineSectionEnd:
			return true
		}
	}

	return false
}

// IsolateSection produces a second, independent cursor bound to exactly the
// byte range of the section body whose opening line is line, and restores
// the original cursor to the start of that body. The two cursors share no
// state afterward: the isolated one re-opens the file, seeks to the body
// start, and reports end of input at the body's end offset.
//
// On any failure the original cursor carries ErrIsolateSection (unless an
// earlier error is already sticky) and no cursor is returned.
func (c *Config) IsolateSection(line *Line) (*Config, bool) {
	if c.err != nil {
		return nil, false
	}
	if line.Type != LineSection {
		return nil, false
	}

	originLine := c.line
	start := c.pos

	var sub *Config
	ok := false
	if c.findSectionEnd(line, 1) {
		// Restoring the line counter is cosmetic: the original cursor
		// reports "about to read this section", not "just finished it".
		c.line = originLine
		end := c.pos

		var err error
		if sub, err = Open(c.path); err == nil {
			if err = sub.seekTo(start); err == nil {
				sub.isolatedEnd = end
				ok = true
			}
		}
	}

	if err := c.seekTo(start); err != nil {
		c.fail(fmt.Errorf("could not reset file position: %w", err))
		ok = false
	}
	if !ok || c.err != nil {
		c.fail(ErrIsolateSection)
		sub.Close()

		return nil, false
	}

	return sub, true
}
