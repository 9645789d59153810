package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/rickypai/natsort"

	"clamc/clam"
)

const inspectHelp = `Inspector commands:
  fns              Lists every top-level function.
  fn <name>        Displays a function by its binder name.
  globals          Lists every module global.
  types            Lists the type-def table.
  type <index>     Displays a single type-def entry.
  init             Displays the module init function.
  main             Displays the program entry point.
  help             Displays this text.
  quit             Exits the inspector.
`

// runInspector opens an interactive prompt over a lowered program.
func runInspector(prog *clam.Prog, cfg clam.SexpConfig) int {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	fmt.Println("clamc inspector: type `help` for commands, Ctrl-D to exit")

	for {
		line, err := ln.Prompt("clam> ")
		if err == liner.ErrPromptAborted {
			continue
		} else if err == io.EOF {
			fmt.Println()
			break
		} else if err != nil {
			fmt.Println(err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		ln.AppendHistory(line)

		if inspectCommand(prog, cfg, line) {
			break
		}
	}

	return 0
}

// inspectCommand executes a single inspector command, returning whether the
// inspector should exit.
func inspectCommand(prog *clam.Prog, cfg clam.SexpConfig, line string) bool {
	fields := strings.Fields(line)

	switch fields[0] {
	case "help":
		fmt.Print(inspectHelp)
	case "quit", "exit":
		return true
	case "fns":
		names := make([]string, len(prog.Fns))
		for i, item := range prog.Fns {
			names[i] = item.Binder.String()
		}

		natsort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
	case "fn":
		if len(fields) != 2 {
			fmt.Println("usage: fn <name>")
			break
		}

		item := findFn(prog, fields[1])
		if item == nil {
			fmt.Printf("no function named `%s`\n", fields[1])
			break
		}

		displayFnItem(item, cfg)
	case "globals":
		lines := make([]string, len(prog.Globals))
		for i, g := range prog.Globals {
			if g.Init != nil {
				lines[i] = fmt.Sprintf("%s = %s", g.Var, g.Init)
			} else {
				lines[i] = fmt.Sprintf("%s = <computed in init>", g.Var)
			}
		}

		natsort.Strings(lines)
		for _, l := range lines {
			fmt.Println(l)
		}
	case "types":
		for i, td := range prog.TypeDefs {
			fmt.Printf("%d: %s\n", i, td.Repr())
		}
	case "type":
		if len(fields) != 2 {
			fmt.Println("usage: type <index>")
			break
		}

		ndx, err := strconv.Atoi(fields[1])
		if err != nil || ndx < 0 || ndx >= len(prog.TypeDefs) {
			fmt.Printf("no type-def entry `%s`\n", fields[1])
			break
		}

		fmt.Println(prog.TypeDefs[ndx].Repr())
	case "init":
		if prog.Init == nil {
			fmt.Println("the module has no init function")
			break
		}

		displayFn(prog.Init, cfg)
	case "main":
		if prog.Main == nil {
			fmt.Println("the module has no entry point")
			break
		}

		displayFn(prog.Main, cfg)
	default:
		fmt.Printf("unknown command `%s`: type `help` for commands\n", fields[0])
	}

	return false
}

// findFn resolves a function item by its binder name, with or without the
// leading `@` and trailing issue number.
func findFn(prog *clam.Prog, name string) *clam.TopFuncItem {
	trimmed := strings.TrimPrefix(name, "@")

	for _, item := range prog.Fns {
		if item.Binder.Name == trimmed || item.Binder.String() == "@"+trimmed {
			return item
		}
	}

	return nil
}

// displayFnItem displays a top-level function: its signature header followed
// by its body in S-expression form.
func displayFnItem(item *clam.TopFuncItem, cfg clam.SexpConfig) {
	fmt.Print(item.Binder)

	if pub, ok := item.Kind.(clam.TopPub); ok {
		fmt.Printf(" export=%q", pub.ExportName)
	}

	if item.Tid != nil {
		fmt.Printf(" closure_type=%d", *item.Tid)
	}

	fmt.Println()
	displayFn(item.Fn, cfg)
}

// displayFn displays a function signature and body.
func displayFn(fn *clam.Fn, cfg clam.SexpConfig) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s: %s", p, fn.ParamTys[i].Repr())
	}

	fmt.Printf("(%s) -> %s\n", strings.Join(params, ", "), fn.ReturnType.Repr())
	fmt.Println(clam.ExprSexp(fn.Body, cfg))
}
