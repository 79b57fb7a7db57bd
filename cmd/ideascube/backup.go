package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ideascube/ideascube-sub000/internal/dto"
)

func runBackup(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	format := fs.String("format", "", "归档格式：tar、gztar 或 bztar")
	noinput := fs.Bool("noinput", false, "不询问确认")
	fs.BoolVar(noinput, "no-input", false, "同 --noinput")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	action, reference := "list", ""
	if len(pos) > 0 {
		action = pos[0]
	}
	if len(pos) > 1 {
		reference = pos[1]
	}
	if len(pos) > 2 {
		return usageError("too many arguments")
	}

	switch action {
	case "list":
		return backupList(ctx, e)
	case "create":
		b, err := e.svc.Backup.Create(ctx, &dto.CreateBackupRequest{Format: *format})
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Successfully created backup %s\n", b.Name)
		return nil
	case "add":
		if reference == "" {
			return usageError("Missing path to backup to add.")
		}
		_, err := backupAdd(ctx, e, reference)
		return err
	case "delete":
		if reference == "" {
			return usageError("Missing backup name to delete.")
		}
		if err := e.svc.Backup.Delete(ctx, reference); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Deleted backup %s\n", reference)
		return nil
	case "restore":
		if reference == "" {
			return usageError("Missing backup path or name to restore.")
		}
		return backupRestore(ctx, e, reference, !*noinput)
	case "push":
		if reference == "" {
			return usageError("Missing backup name to push.")
		}
		if err := e.svc.Backup.Push(ctx, reference); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Pushed backup %s\n", reference)
		return nil
	default:
		return usageError("unknown action %q", action)
	}
}

func backupList(ctx context.Context, e *env) error {
	list, err := e.svc.Backup.List(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, "* Available backups:")
	for _, b := range list {
		fmt.Fprintln(e.out, b.Name)
	}
	return nil
}

// backupAdd 将本地文件导入备份目录，文件名需符合备份命名规则
func backupAdd(ctx context.Context, e *env, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("File not found %s", path)
		}
		return "", err
	}
	defer f.Close()

	b, err := e.svc.Backup.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(e.out, "✔ Imported backup %s.\n", b.Name)
	return b.Name, nil
}

// backupRestore 引用既可以是已有备份名，也可以是待导入的文件路径
func backupRestore(ctx context.Context, e *env, reference string, interactive bool) error {
	list, err := e.svc.Backup.List(ctx)
	if err != nil {
		return err
	}
	name := ""
	for _, b := range list {
		if b.Name == reference {
			name = b.Name
			break
		}
	}
	if name == "" {
		if _, err := os.Stat(reference); err != nil {
			return fmt.Errorf("Unable to understand backup reference %s. "+
				"Please pass either a backup name or a filepath.", reference)
		}
		if name, err = backupAdd(ctx, e, reference); err != nil {
			return err
		}
	}

	if interactive {
		fmt.Fprintf(e.out, "You have requested to restore %s. This will "+
			"replace all the server data, including database and medias.\n"+
			"Type \"yes\" to confirm or \"no\" to cancel: ", name)
		answer, _ := e.in.ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			return errors.New("Restore cancelled.")
		}
	}

	if _, err := e.svc.Backup.Restore(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Successfully restored %s!\n", name)
	return nil
}
