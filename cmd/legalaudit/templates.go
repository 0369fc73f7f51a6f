package main

import (
	"fmt"
	"strconv"

	"github.com/fwojciec/legalaudit"
)

// Run executes the templates command.
func (c *TemplatesCmd) Run(deps *Dependencies) error {
	infos, err := deps.Templates.Info(deps.Ctx, c.Names)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", legalaudit.ErrorMessage(err))
		return err
	}

	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{info.Name, info.Path, strconv.FormatInt(info.Size, 10)}
	}
	writeTable(deps.Stdout, []string{"Name", "Path", "Bytes"}, rows, 2)
	return nil
}
