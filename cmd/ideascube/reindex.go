package main

import (
	"context"
	"fmt"
)

func runReindex(ctx context.Context, e *env, args []string) error {
	if len(args) > 0 {
		return usageError("unexpected arguments %v", args)
	}

	counts, err := e.svc.Search.Reindex(ctx)
	if err != nil {
		return err
	}
	for _, model := range e.svc.Search.Models() {
		if counts[model] > 0 {
			fmt.Fprintf(e.out, "Indexed %s content.\n", model)
		}
	}
	fmt.Fprintln(e.out, "Done reindexing.")
	return nil
}
