package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ideascube/ideascube-sub000/internal/dto"
)

func runUser(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return usageError("missing subcommand")
	}

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("user create", flag.ContinueOnError)
		staff := fs.Bool("staff", false, "管理员账号")
		fullName := fs.String("full-name", "", "姓名")
		pos, err := parseArgs(fs, args[1:])
		if err != nil {
			return err
		}
		if len(pos) != 2 {
			return usageError("user create <serial> <password>")
		}
		user, err := e.svc.User.Create(ctx, &dto.CreateUserRequest{
			Serial:   pos[0],
			FullName: *fullName,
			Password: pos[1],
			IsStaff:  *staff,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Created user %s (id %d)\n", user.Serial, user.ID)
		return nil
	case "list":
		users, total, err := e.svc.User.List(ctx, &dto.PaginationRequest{Page: 1, PageSize: 100})
		if err != nil {
			return err
		}
		for _, u := range users {
			role := ""
			if u.IsStaff {
				role = " [staff]"
			}
			fmt.Fprintf(e.out, "%d\t%s\t%s%s\n", u.ID, u.Serial, u.FullName, role)
		}
		if total > int64(len(users)) {
			fmt.Fprintf(e.out, "... %d more\n", total-int64(len(users)))
		}
		return nil
	default:
		return usageError("unknown subcommand %q", args[0])
	}
}
