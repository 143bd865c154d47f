package main

import (
	"strings"

	"budget/internal/core"
)

// valueFlags are the persistent flags that consume the following argument.
var valueFlags = map[string]bool{
	"--file":      true,
	"--backend":   true,
	"--config":    true,
	"--log-level": true,
}

// negativeAmountArgs lets "add -5 food refund" reach the add command as
// positionals. cobra would otherwise parse "-5" as a shorthand flag. When the
// first positional after "add" is a negative number, known flags that follow
// it are moved ahead and a "--" terminator is placed before the amount.
// Arguments that already carry "--" are returned unchanged.
func negativeAmountArgs(args []string) []string {
	for _, a := range args {
		if a == "--" {
			return args
		}
	}

	sawAdd := false
	for i := 0; i < len(args); i++ {
		a := args[i]
		if valueFlags[a] {
			i++
			continue
		}
		if strings.HasPrefix(a, "--") {
			continue
		}
		if !sawAdd {
			if a == "add" {
				sawAdd = true
				continue
			}
			if !strings.HasPrefix(a, "-") {
				// Some other subcommand.
				return args
			}
			continue
		}
		if !isNegativeAmount(a) {
			return args
		}
		return splitAmountTail(args, i)
	}
	return args
}

// splitAmountTail rebuilds args so everything before at stays in place, known
// flags from the tail follow it, and the positionals come after "--".
func splitAmountTail(args []string, at int) []string {
	out := append([]string{}, args[:at]...)
	var positionals []string
	for i := at; i < len(args); i++ {
		a := args[i]
		switch {
		case valueFlags[a] && i+1 < len(args):
			out = append(out, a, args[i+1])
			i++
		case isKnownFlagAssignment(a):
			out = append(out, a)
		default:
			positionals = append(positionals, a)
		}
	}
	out = append(out, "--")
	return append(out, positionals...)
}

func isKnownFlagAssignment(a string) bool {
	name, _, ok := strings.Cut(a, "=")
	return ok && valueFlags[name]
}

func isNegativeAmount(a string) bool {
	if len(a) < 2 || a[0] != '-' {
		return false
	}
	_, err := core.ParseAmount(a)
	return err == nil
}
