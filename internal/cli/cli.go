// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/retroenv/retropatch/internal/config"
	"github.com/retroenv/retropatch/internal/detector"
	"github.com/retroenv/retropatch/internal/options"
)

// ParseFlags parses command line flags and returns program and patch options
func ParseFlags() (options.Program, options.Patch, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	var opts options.Program
	registerFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Batch == "" && opts.Input == "") {
		return opts, options.Patch{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Patch{}, err
	}

	if opts.Batch == "" && len(args) > 0 {
		opts.Input = args[0]
	}

	if err := validateOptionCombinations(opts); err != nil {
		return opts, options.Patch{}, err
	}

	patchOptions, err := config.Load(opts.Config)
	if err != nil {
		return opts, options.Patch{}, fmt.Errorf("loading settings: %w", err)
	}

	return opts, patchOptions, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: retropatch [options] <method listing to patch>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && strings.HasPrefix(arg, "-") {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to patch, please pass the file to patch as last argument", arg),
			}
		}
	}
	return nil
}

// validateOptionCombinations checks for options that can not be used together
func validateOptionCombinations(opts options.Program) error {
	if opts.Table && detector.DetectFormat(opts.Output) == detector.Snapshot {
		return fmt.Errorf("table output can not be written to snapshot file %s", opts.Output)
	}
	if opts.Batch != "" && opts.Output != "" {
		return fmt.Errorf("output file %s can not be used in batch mode", opts.Output)
	}
	return nil
}

// registerFlags defines a flag for every field of the struct that has a flag
// tag. Embedded structs are walked recursively.
func registerFlags(flags *flag.FlagSet, target any) {
	value := reflect.ValueOf(target).Elem()
	typ := value.Type()

	for i := range typ.NumField() {
		field := typ.Field(i)
		fieldValue := value.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			registerFlags(flags, fieldValue.Addr().Interface())
			continue
		}

		name, ok := field.Tag.Lookup("flag")
		if !ok {
			continue
		}
		usage := field.Tag.Get("usage")

		switch ptr := fieldValue.Addr().Interface().(type) {
		case *string:
			flags.StringVar(ptr, name, *ptr, usage)
		case *bool:
			flags.BoolVar(ptr, name, *ptr, usage)
		default:
			panic(fmt.Sprintf("unsupported flag type %s of option %s", field.Type, field.Name))
		}
	}
}
