package main

import (
	"context"
	"encoding/json"
	"fmt"
)

func runConfig(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return usageError("missing subcommand")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		if len(rest) > 1 {
			return usageError("config list [namespace]")
		}
		return configList(ctx, e, rest)
	case "get":
		if len(rest) != 2 {
			return usageError("config get <namespace> <key>")
		}
		value, err := e.svc.Config.Value(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		return printJSON(e, value)
	case "set":
		if len(rest) != 3 {
			return usageError("config set <namespace> <key> <json-value>")
		}
		resp, err := e.svc.Config.Set(ctx, rest[0], rest[1], parseValue(rest[2]), nil)
		if err != nil {
			return err
		}
		return printJSON(e, resp.Value)
	case "reset":
		if len(rest) != 2 {
			return usageError("config reset <namespace> <key>")
		}
		return e.svc.Config.Reset(ctx, rest[0], rest[1])
	case "describe":
		if len(rest) != 2 {
			return usageError("config describe <namespace> <key>")
		}
		opt, err := e.svc.Config.Describe(rest[0], rest[1])
		if err != nil {
			return err
		}
		def, _ := json.Marshal(opt.Default)
		fmt.Fprintf(e.out, "%s.%s\n\n%s\n\nType: %s\nDefault: %s\n",
			opt.Namespace, opt.Key, opt.Summary, opt.PrettyType, def)
		return nil
	default:
		return usageError("unknown subcommand %q", sub)
	}
}

func configList(ctx context.Context, e *env, filter []string) error {
	namespaces, err := e.svc.Config.List(ctx)
	if err != nil {
		return err
	}
	found := len(filter) == 0
	for _, ns := range namespaces {
		if len(filter) == 1 && ns.Namespace != filter[0] {
			continue
		}
		found = true
		for _, opt := range ns.Options {
			value, _ := json.Marshal(opt.Value)
			marker := ""
			if opt.IsDefault {
				marker = " (default)"
			}
			fmt.Fprintf(e.out, "%s.%s = %s%s\n", opt.Namespace, opt.Key, value, marker)
		}
	}
	if !found {
		return fmt.Errorf("Unknown configuration namespace: %q", filter[0])
	}
	return nil
}

// parseValue 参数不是合法 JSON 时按字符串处理，免去 shell 中的多层引号
func parseValue(arg string) json.RawMessage {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	raw, _ := json.Marshal(arg)
	return raw
}

func printJSON(e *env, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, string(b))
	return nil
}
