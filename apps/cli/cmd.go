package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/services/backend"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	backends   *backend.Factory
	tokens     tokenFile
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL - sign in; the password is prompted")
	fmt.Fprintln(cli.out, "  logout - forget the stored credential")
	fmt.Fprintln(cli.out, "  whoami - show the signed in user")
	fmt.Fprintln(cli.out, "  users [-role admin|professor] - list users")
	fmt.Fprintln(cli.out, "  upload -group ID -file ROSTER - upload a student roster (.xlsx or .csv)")
	fmt.Fprintln(cli.out, "  logs -file NAME - print a backend log file")
	fmt.Fprintln(cli.out, "  migrate - create the session table of the sql session backend")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginEmail := loginCmd.String("email", "", "The user's email. The password will be prompted next.")

	usersCmd := flag.NewFlagSet("users", flag.ContinueOnError)
	usersRole := usersCmd.String("role", "", "Only list users of this role.")

	uploadCmd := flag.NewFlagSet("upload", flag.ContinueOnError)
	uploadGroup := uploadCmd.Int("group", 0, "The group the students join.")
	uploadFile := uploadCmd.String("file", "", "The roster file.")

	logsCmd := flag.NewFlagSet("logs", flag.ContinueOnError)
	logsFile := logsCmd.String("file", "", "The log file name.")

	for _, fs := range []*flag.FlagSet{loginCmd, usersCmd, uploadCmd, logsCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginEmail, string(pwd))

	case "logout":
		return cli.logout()

	case "whoami":
		return cli.whoami()

	case "users":
		if err := usersCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.users(*usersRole)

	case "upload":
		if err := uploadCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uploadGroup < 1 || *uploadFile == "" {
			uploadCmd.Usage()
			return errHelp
		}
		return cli.upload(*uploadGroup, *uploadFile)

	case "logs":
		if err := logsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *logsFile == "" {
			logsCmd.Usage()
			return errHelp
		}
		return cli.logs(*logsFile)

	case "migrate":
		return cli.migrate()

	default:
		cli.printUsage()
		return errHelp
	}
}
