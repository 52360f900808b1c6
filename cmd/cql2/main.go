// Command cql2 is a thin demonstration binary over the cql2 package: it
// parses a single expression and prints it back out in the requested
// format, optionally validating or reducing it first. It is not part of
// the package's supported API surface.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/geocql/cql2"
	"github.com/urfave/cli/v3"
)

var (
	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "output format: text, json, json-pretty, sql, duckdb-sql",
		Value:   "text",
	}
	fileFlag = &cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Usage:   "read the expression from a file instead of the positional argument",
	}
	validateFlag = &cli.BoolFlag{
		Name:  "validate",
		Usage: "validate the expression against the CQL2 JSON Schema before printing it",
	}
	reduceFlag = &cli.BoolFlag{
		Name:  "reduce",
		Usage: "partially evaluate the expression before printing it",
	}
	itemFlag = &cli.StringFlag{
		Name:  "item",
		Usage: "JSON object to match the expression against; with --reduce, prints the boolean result",
	}
)

func main() {
	cmd := &cli.Command{
		Name:  "cql2",
		Usage: "parse, validate, reduce, and convert CQL2 expressions",
		Flags: []cli.Flag{formatFlag, fileFlag, validateFlag, reduceFlag, itemFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(cmd)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cli.Command) error {
	input, err := readInput(cmd)
	if err != nil {
		return err
	}

	expr, err := cql2.ParseAuto(input)
	if err != nil {
		return err
	}

	if cmd.Bool(validateFlag.Name) {
		v, err := cql2.ToValue(expr)
		if err != nil {
			return err
		}
		if err := cql2.Validate(v); err != nil {
			return err
		}
	}

	if cmd.Bool(reduceFlag.Name) {
		expr, err = reduceWithItem(cmd, expr)
		if err != nil {
			return err
		}
	}

	out, err := render(expr, cmd.String(formatFlag.Name))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func readInput(cmd *cli.Command) (string, error) {
	if path := cmd.String(fileFlag.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &cql2.IoError{Path: path, Err: err}
		}
		return string(data), nil
	}
	if cmd.Args().Len() > 0 {
		return cmd.Args().First(), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", &cql2.IoError{Path: "stdin", Err: err}
	}
	return string(data), nil
}

func reduceWithItem(cmd *cli.Command, expr cql2.Expr) (cql2.Expr, error) {
	itemJSON := cmd.String(itemFlag.Name)
	if itemJSON == "" {
		return cql2.Reduce(expr)
	}
	var item map[string]interface{}
	if err := json.Unmarshal([]byte(itemJSON), &item); err != nil {
		return nil, &cql2.ParseError{Message: err.Error(), Input: itemJSON}
	}
	matched, err := cql2.Matches(expr, item)
	if err != nil {
		return nil, err
	}
	return cql2.Bool(matched), nil
}

func render(expr cql2.Expr, format string) (string, error) {
	switch format {
	case "text":
		return cql2.ToText(expr)
	case "json":
		b, err := cql2.ToJSON(expr)
		return string(b), err
	case "json-pretty":
		b, err := cql2.ToJSONIndent(expr, "", "  ")
		return string(b), err
	case "sql":
		q, err := cql2.ToSQL(expr, cql2.DialectGeneric)
		if err != nil {
			return "", err
		}
		return formatQuery(q), nil
	case "duckdb-sql":
		q, err := cql2.ToDuckDBSQL(expr)
		if err != nil {
			return "", err
		}
		return formatQuery(q), nil
	default:
		return "", fmt.Errorf("cql2: unknown output format %q", format)
	}
}

func formatQuery(q cql2.SQLQuery) string {
	return fmt.Sprintf("%s\n%v", q.Text, q.Params)
}
