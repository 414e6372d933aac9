package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var AuthoriseCmd = Authorise{
	command: command{
		debug: false,
	},

	port: 0,
}

type Authorise struct {
	command
	port int
}

func (cmd *Authorise) Name() string {
	return "authorise"
}

func (cmd *Authorise) Description() string {
	return "Authorises access to Google Drive and Google Sheets with an OAuth client secret"
}

func (cmd *Authorise) Usage() string {
	return "[--port <port>]"
}

func (cmd *Authorise) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] authorise [--port <port>]\n", APP)
	fmt.Println()
	fmt.Println("  Opens the Google consent page in a browser and saves the resulting OAuth token to the configured")
	fmt.Println("  token file. Not required when the credentials file is a service account key.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf("    %s authorise\n", APP)
	fmt.Printf("    %s --config gdrive-access-sync.yaml authorise --port 8080\n", APP)
	fmt.Println()
}

func (cmd *Authorise) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("authorise")

	flagset.IntVar(&cmd.port, "port", cmd.port, "localhost port for the OAuth redirect. Defaults to any free port")

	return flagset
}

func (cmd *Authorise) Execute(args ...any) error {
	options := args[0].(*Options)

	cfg, err := cmd.configure(options)
	if err != nil {
		return err
	}

	b, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return fmt.Errorf("unable to read credentials file (%w)", err)
	}

	if isServiceAccount(b) {
		infof("%v is a service account key - no authorisation required", cfg.CredentialsPath)
		return nil
	}

	oauth, err := google.ConfigFromJSON(b, DRIVE, SHEETS)
	if err != nil {
		return fmt.Errorf("invalid OAuth client credentials (%w)", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	token, err := cmd.authenticate(ctx, oauth)
	if err != nil {
		return fmt.Errorf("authorisation error (%w)", err)
	}

	if err := saveToken(cfg.TokenPath, token); err != nil {
		return err
	}

	infof("saved OAuth token to %v", cfg.TokenPath)

	return nil
}

func (cmd *Authorise) authenticate(ctx context.Context, oauth *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%v", cmd.port))
	if err != nil {
		return nil, err
	}

	port := listener.Addr().(*net.TCPAddr).Port
	state := uuid.NewString()

	oauth.RedirectURL = fmt.Sprintf("http://localhost:%v/", port)

	authorised := make(chan string, 1)
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, rq *http.Request) {
		code := rq.FormValue("code")

		if rq.FormValue("state") != state || code == "" {
			http.Error(w, "Invalid authorisation response", http.StatusBadRequest)
			return
		}

		fmt.Fprintln(w, "Authorised - you can close this window")

		select {
		case authorised <- code:
		default:
		}
	})

	srv := &http.Server{
		Handler: mux,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			warnf("%v", err)
		}
	}()

	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			warnf("%v", err)
		}
	}()

	url := oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if err := browse(url); err != nil {
		fmt.Println()
		fmt.Println("Could not open the authorisation page in your browser - please open the following URL manually:")
		fmt.Println()
		fmt.Printf("  %v\n", url)
		fmt.Println()
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("cancelled")

	case code := <-authorised:
		return oauth.Exchange(ctx, code)
	}
}

func browse(url string) error {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}

	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("missing URL")
	}

	return exec.Command(opener, url).Start()
}
