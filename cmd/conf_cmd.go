package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dzjyyds666/cq/parse"
	"github.com/dzjyyds666/cq/pkg"
	"github.com/spf13/cobra"
)

type ConfParams struct {
	Find    string `json:"find"`    // 查找的key路径
	Input   string `json:"input"`   // 输入文件路径
	Section string `json:"section"` // 隔离的section路径
	Output  string `json:"output"`  // 输出文件地址
}

var params *ConfParams

var confCmd = &cobra.Command{
	Use:   "conf",
	Short: "conf parse tools",
	Run:   confRun,
}

func init() {
	params = &ConfParams{}
	confCmd.Flags().StringVarP(&params.Find, "find", "f", "", "find key, dot-separated path")
	confCmd.Flags().StringVarP(&params.Input, "input", "i", "", "input file path")
	confCmd.Flags().StringVarP(&params.Section, "section", "s", "", "isolate a section, dot-separated name or name/param chain")
	confCmd.Flags().StringVarP(&params.Output, "output", "o", "", "output path")
}

func confRun(cmd *cobra.Command, args []string) {
	if len(params.Input) == 0 {
		fmt.Println("no input file path")
		return
	}
	exist, err := pkg.CheckFileExist(params.Input)
	if err != nil {
		fmt.Println("check file exist error:", err)
		return
	}
	if !exist {
		fmt.Println("input file not exist")
		return
	}

	var root *parse.ConfSection
	if len(params.Section) != 0 {
		selector := strings.Split(params.Section, ".")
		sub, err := parse.IsolateConf(params.Input, selector...)
		if err != nil {
			fmt.Println("isolate section error:", err)
			return
		}
		defer sub.Close()
		root, err = parse.ReadConf(sub, selector[len(selector)-1], "")
		if err != nil {
			fmt.Println("parse section error:", err)
			return
		}
	} else {
		root, err = parse.ParseConf(params.Input)
		if err != nil {
			fmt.Println("parse conf error:", err)
			return
		}
	}

	if len(params.Find) != 0 {
		v, ok := parse.GetKey(root, strings.Split(params.Find, ".")...)
		if !ok {
			fmt.Println("key not found:", params.Find)
			return
		}
		fmt.Println(v)
		return
	}

	out := io.Writer(os.Stdout)
	if len(params.Output) != 0 {
		f, err := pkg.CreateFile(params.Output)
		if err != nil {
			fmt.Println("create output file error:", err)
			return
		}
		defer f.Close()
		out = f
	}
	dumpSection(out, root, 0)
}

// dumpSection 以缩进的形式输出section树, 多行值用三引号包裹
func dumpSection(w io.Writer, s *parse.ConfSection, indent int) {
	pad := strings.Repeat("    ", indent)

	keys := make([]string, 0, len(s.Keys))
	for k := range s.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := s.Keys[k]
		if strings.Contains(v, "\n") {
			fmt.Fprintf(w, "%s%s = '''\n%s'''\n", pad, k, v)
			continue
		}
		fmt.Fprintf(w, "%s%s = %s\n", pad, k, v)
	}

	for _, child := range s.Children {
		header := child.Name
		if child.Param != "" {
			header += " " + child.Param
		}
		fmt.Fprintf(w, "%s%s {\n", pad, header)
		dumpSection(w, child, indent+1)
		fmt.Fprintf(w, "%s}\n", pad)
	}
}
