package plugin

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/odvcencio/shellpane/pkg/command"
)

// maxLoadSteps bounds the top-level code of a script run at load time.
const maxLoadSteps = 1_000_000

// ScriptModule is a Starlark unit that loaded but defines no callable
// execute. It is not a command.
type ScriptModule struct {
	Filename string
	Globals  starlark.StringDict
}

// ScriptCommand runs the execute(args) function of a Starlark script.
// print() in the script writes a line to the console.
type ScriptCommand struct {
	command.Base
	module  *ScriptModule
	execute starlark.Callable
}

// Description implements command.Describer using the script's top-level
// description string, if any.
func (c *ScriptCommand) Description() string {
	if s, ok := c.module.Globals["description"].(starlark.String); ok {
		return string(s)
	}
	return ""
}

// Execute implements command.Command. The script's return value becomes
// the exit code: None is 0, an int is itself.
func (c *ScriptCommand) Execute(ctx context.Context, args []string) int {
	out := c.Output()
	thread := &starlark.Thread{
		Name: c.module.Filename,
		Print: func(_ *starlark.Thread, msg string) {
			out.Println(msg)
		},
	}

	stop := context.AfterFunc(ctx, func() { thread.Cancel(context.Cause(ctx).Error()) })
	defer stop()

	list := make([]starlark.Value, len(args))
	for i, a := range args {
		list[i] = starlark.String(a)
	}

	result, err := starlark.Call(thread, c.execute, starlark.Tuple{starlark.NewList(list)}, nil)
	if err != nil {
		if ctx.Err() != nil {
			return command.ExitCanceled
		}
		if evalErr, ok := err.(*starlark.EvalError); ok {
			out.Println(evalErr.Backtrace())
		} else {
			out.Println(err.Error())
		}
		return 1
	}

	switch v := result.(type) {
	case starlark.NoneType:
		return command.ExitOK
	case starlark.Int:
		if code, ok := v.Int64(); ok {
			return int(code)
		}
	case starlark.Bool:
		if v {
			return command.ExitOK
		}
		return 1
	}
	out.Printf("%s: execute returned %s, want int or None\n", c.module.Filename, result.Type())
	return 1
}

// LoadScript evaluates a Starlark source file and returns a *ScriptCommand
// when it defines a callable execute, or a *ScriptModule otherwise.
func LoadScript(ctx context.Context, filename string, src []byte) (any, error) {
	thread := &starlark.Thread{
		Name:  filename,
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(maxLoadSteps)

	stop := context.AfterFunc(ctx, func() { thread.Cancel("discovery canceled") })
	defer stop()

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, nil)
	if err != nil {
		return nil, fmt.Errorf("load script %s: %w", filename, err)
	}
	globals.Freeze()

	module := &ScriptModule{Filename: filename, Globals: globals}
	fn, ok := globals["execute"].(starlark.Callable)
	if !ok {
		return module, nil
	}
	return &ScriptCommand{module: module, execute: fn}, nil
}
