package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/auth"
	"github.com/trezcool/cace/core/resource"
	"github.com/trezcool/cace/core/roster"
	"github.com/trezcool/cace/core/school"
	"github.com/trezcool/cace/services/backend"
	"github.com/trezcool/cace/storage/session/sqlxstore"
)

var (
	errEmailNotRegistered = errors.New("this email is not registered")
	errWrongPassword      = errors.New("the password is incorrect")
	errNotSignedIn        = errors.New("not signed in, run login first")
)

func (cli *commandLine) client() *backend.Client {
	return cli.backends.Client(cli.tokens, nil)
}

// signedIn verifies the stored credential. A rejected credential is cleared.
func (cli *commandLine) signedIn(ctx context.Context) (auth.SessionUser, error) {
	token, ok, err := cli.tokens.Read(ctx)
	if err != nil {
		return auth.SessionUser{}, err
	}
	if !ok {
		return auth.SessionUser{}, errNotSignedIn
	}
	usr, err := auth.NewVerifier(cli.client()).Verify(ctx, token)
	if err != nil {
		if cErr := cli.tokens.Clear(ctx); cErr != nil {
			return auth.SessionUser{}, cErr
		}
		return auth.SessionUser{}, err
	}
	return usr, nil
}

func (cli *commandLine) login(email, pwd string) error {
	ctx := context.Background()
	req := school.LoginRequest{Email: email, Password: pwd}
	if err := req.Validate(cli.validate); err != nil {
		return core.ValidationErrorFrom(err, cli.translator)
	}

	token, err := cli.client().Login(ctx, req.Email, req.Password)
	if err != nil {
		switch backend.StatusCode(err) {
		case http.StatusNotFound:
			return errEmailNotRegistered
		case http.StatusUnauthorized:
			return errWrongPassword
		}
		return err
	}
	if err = cli.tokens.Save(ctx, token); err != nil {
		return err
	}

	usr, err := cli.signedIn(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Signed in as %s (%s)\n", usr.Name, usr.Role)
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.tokens.Clear(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Signed out")
	return nil
}

func (cli *commandLine) whoami() error {
	usr, err := cli.signedIn(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s <%s> (%s)\n", usr.Name, usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) users(role string) error {
	ctx := context.Background()
	if _, err := cli.signedIn(ctx); err != nil {
		return err
	}

	var (
		users []school.User
		err   error
	)
	if role != "" {
		users, err = cli.client().UsersByRole(ctx, role)
	} else {
		users, err = resource.NewCollection[school.User](cli.client(), "User", resource.Endpoints{List: "/users"}).List(ctx)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	}
	return w.Flush()
}

func (cli *commandLine) upload(groupID int, path string) error {
	ctx := context.Background()
	if _, err := cli.signedIn(ctx); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening roster")
	}
	defer func() { _ = f.Close() }()

	sheet, err := roster.Parse(path, f)
	if err != nil {
		return err
	}
	upload := school.RosterUpload{Data: sheet.Records(), GroupID: groupID}
	if err = upload.Validate(cli.validate); err != nil {
		return core.ValidationErrorFrom(err, cli.translator)
	}
	if err = cli.client().UploadRoster(ctx, upload); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d students uploaded to group %d\n", len(upload.Data), groupID)
	return nil
}

func (cli *commandLine) logs(file string) error {
	ctx := context.Background()
	if _, err := cli.signedIn(ctx); err != nil {
		return err
	}
	if !school.IsLogFile(file) {
		return errors.Errorf("unknown log file %q", file)
	}
	content, err := cli.client().Log(ctx, file)
	if err != nil {
		return err
	}
	fmt.Fprint(cli.out, content)
	return nil
}

// migrate creates the session table of the sql session backend.
func (cli *commandLine) migrate() error {
	if cli.conf.Session.Backend != core.SessionBackendSQL {
		return errors.Errorf("session backend is %q, nothing to migrate", cli.conf.Session.Backend)
	}
	db, err := sqlxstore.Open(cli.conf.Database.URL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err = sqlxstore.New(db, cli.conf.Session.IdleTTL).Migrate(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Session table ready")
	return nil
}
