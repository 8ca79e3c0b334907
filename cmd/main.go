package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"

	guardctx "github.com/foundriesio/route-guard/context"
	"github.com/foundriesio/route-guard/storage"
	"github.com/foundriesio/route-guard/storage/users"
)

type CommonArgs struct {
	DataDir  string `arg:"required" help:"Directory to store data"`
	LogLevel string `arg:"--log-level" default:"info" help:"debug, info, warning or error"`

	Serve    *ServeCmd    `arg:"subcommand:serve" help:"Run the REST API server"`
	UserAdd  *UserAddCmd  `arg:"subcommand:user-add" help:"Create a local user"`
	TokenAdd *TokenAddCmd `arg:"subcommand:token-add" help:"Issue an API token for a user"`
}

func (c CommonArgs) openStorage() (*users.Storage, *storage.FsHandle, error) {
	fs, err := storage.NewFs(c.DataDir)
	if err != nil {
		return nil, nil, err
	}
	if err := fs.Secrets.InitHmacSecret(); err != nil {
		return nil, nil, err
	}
	db, err := storage.NewDb(fs.DbFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load database: %w", err)
	}
	userStorage, err := users.NewStorage(db, fs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize user storage: %w", err)
	}
	return userStorage, fs, nil
}

func main() {
	args := CommonArgs{}
	p := arg.MustParse(&args)

	if _, err := guardctx.InitLogger(args.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	var err error
	switch {
	case args.Serve != nil:
		err = args.Serve.Run(args)
	case args.UserAdd != nil:
		err = args.UserAdd.Run(args)
	case args.TokenAdd != nil:
		err = args.TokenAdd.Run(args)
	default:
		p.Fail("missing required subcommand")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
