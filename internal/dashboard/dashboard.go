package dashboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/i474232898/weatherornot/internal/common"
	"github.com/i474232898/weatherornot/internal/session"
)

// ErrInvalidInput is returned for search terms that are neither a city name
// nor a ZIP code.
var ErrInvalidInput = errors.New("please enter a valid city name or 5-digit ZIP code")

// Controller is the session controller as seen by the dashboard.
type Controller interface {
	State() session.State
	Select(name string)
	Remove(name string)
	Clear()
	Refresh()
	Subscribe() (<-chan session.State, func())
}

// Dashboard is a line-oriented terminal front end for a session controller.
type Dashboard struct {
	ctrl  Controller
	debug bool

	mu    sync.Mutex // guards out and title
	out   io.Writer
	title cases.Caser
}

// New creates a Dashboard writing to out. With debug set, "show" dumps the
// raw controller state.
func New(ctrl Controller, out io.Writer, debug bool) *Dashboard {
	return &Dashboard{
		ctrl:  ctrl,
		debug: debug,
		out:   out,
		title: cases.Title(language.English),
	}
}

// Run renders every state change and executes commands read from in until
// EOF, "quit" or ctx is done.
func (d *Dashboard) Run(ctx context.Context, in io.Reader) error {
	states, unsubscribe := d.ctrl.Subscribe()
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for st := range states {
			d.Render(st)
		}
	}()
	defer func() {
		unsubscribe()
		<-rendered
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	d.printf("Type 'help' for commands.\n")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if isQuit(line) {
				return nil
			}
			if err := d.Execute(line); err != nil {
				d.printf("! %v\n", err)
			}
		}
	}
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// Execute runs a single command line.
func (d *Dashboard) Execute(line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "search", "s":
		if !common.ValidLocation(arg) {
			return ErrInvalidInput
		}
		d.ctrl.Select(arg)
	case "open", "o":
		name, err := d.resolve(arg)
		if err != nil {
			return err
		}
		d.ctrl.Select(name)
	case "rm", "remove", "delete":
		name, err := d.resolve(arg)
		if err != nil {
			return err
		}
		d.ctrl.Remove(name)
	case "clear":
		d.ctrl.Clear()
	case "refresh", "r":
		d.ctrl.Refresh()
	case "show":
		st := d.ctrl.State()
		if d.debug {
			d.mu.Lock()
			spew.Fdump(d.out, st)
			d.mu.Unlock()
		}
		d.Render(st)
	case "help", "h", "?":
		d.printf("%s", usage)
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
	return nil
}

const usage = `Commands:
  search <city|zip>   view a location and save it
  open <n|name>       view a saved location
  rm <n|name>         delete a saved location
  clear               delete all saved locations
  refresh             fetch the current weather again
  show                print the dashboard
  quit
`

// resolve maps a 1-based index or an exact name to a saved location.
func (d *Dashboard) resolve(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("which location? give a number or a name")
	}
	saved := d.ctrl.State().Saved
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(saved) {
			return "", fmt.Errorf("no saved location #%d", n)
		}
		return saved[n-1], nil
	}
	for _, s := range saved {
		if s == arg {
			return s, nil
		}
	}
	return "", fmt.Errorf("%q is not a saved location", arg)
}

func (d *Dashboard) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format, args...)
}
