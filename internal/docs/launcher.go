package docs

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pders01/tendr/internal/config"
	"github.com/pders01/tendr/internal/debuglog"
	"github.com/pders01/tendr/internal/tender"
)

// ErrNoLink is returned when a document has no URL to open.
var ErrNoLink = errors.New("document has no link")

// Runner starts a detached process.
type Runner func(name string, args ...string) error

// Launcher opens tender documents in an external application.
type Launcher struct {
	registry *Registry
	opener   string
	baseArgs []string
	goos     string
	run      Runner
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewRegistry()
	if err != nil {
		debuglog.Warnf("opener registry unavailable: %v", err)
		registry = &Registry{byExt: map[string]Kind{}}
	}

	l := &Launcher{
		registry: registry,
		goos:     runtime.GOOS,
		run:      startDetached,
	}
	l.opener, l.baseArgs = registry.DefaultOpener(l.goos)
	if custom := strings.TrimSpace(cfg.Docs.DefaultOpener); custom != "" && custom != l.opener {
		l.opener = custom
		l.baseArgs = nil
	}
	return l
}

// SetRunner replaces how processes are started.
func (l *Launcher) SetRunner(run Runner) {
	l.run = run
}

func (l *Launcher) Registry() *Registry {
	return l.registry
}

// Command returns the program and arguments that would open link.
func (l *Launcher) Command(link string) (string, []string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", nil, ErrNoLink
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", nil, fmt.Errorf("refusing to open %q: not an http(s) link", link)
	}

	args := append([]string{}, l.baseArgs...)
	args = append(args, l.registry.Args(l.opener, l.registry.Detect(link), l.goos)...)
	args = append(args, link)
	return l.opener, args, nil
}

// Open launches the opener for doc.
func (l *Launcher) Open(doc tender.Document) error {
	name, args, err := l.Command(doc.URL)
	if err != nil {
		return err
	}
	debuglog.Infof("opening %s with %s", doc.URL, name)
	if err := l.run(name, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
