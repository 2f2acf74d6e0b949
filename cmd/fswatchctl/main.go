package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/shuakami/fswatch"
	"github.com/sirupsen/logrus"
)

type patterns []string

func (p *patterns) String() string     { return strings.Join(*p, ",") }
func (p *patterns) Set(v string) error { *p = append(*p, v); return nil }

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	poll := flag.Bool("poll", false, "Use the poll_monitor backend")
	once := flag.Bool("once", false, "Exit after the first batch of events")
	native := flag.Bool("native", false, "Use the in-process fsnotify monitor instead of fswatch")
	bin := flag.String("fswatch", "fswatch", "fswatch executable")
	debug := flag.Bool("debug", false, "Enable debug logging")
	var ignore patterns
	flag.Var(&ignore, "e", "Exclude paths matching regex (repeatable)")
	flag.Parse()

	log := logrus.StandardLogger()
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(*configPath, *poll, *once, *native, *bin, ignore, flag.Args(), log); err != nil {
		log.WithError(err).Fatal("fswatchctl failed")
	}
}

func run(configPath string, poll, once, native bool, bin string, ignore, paths []string, log *logrus.Logger) error {
	var cfg fswatch.Config
	if configPath != "" {
		c, err := fswatch.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = c
	}

	var monitor fswatch.Monitor = fswatch.ExecMonitor{Path: bin}
	if native {
		monitor = fswatch.NotifyMonitor{}
	}

	w, err := fswatch.NewWatcher(cfg, fswatch.WithMonitor(monitor), fswatch.WithLogger(log))
	if err != nil {
		return err
	}
	w.AddWatch(paths...)
	for _, p := range ignore {
		w.Ignore(p)
	}
	if once {
		w.OneEvent()
	}
	if poll && !w.Config().Polling {
		if err := w.UsePolling(); err != nil {
			return err
		}
	}
	if len(w.Config().Paths) == 0 {
		return errors.New("no paths to watch")
	}

	w.OnAny(func(kind fswatch.EventKind, path string) {
		log.WithFields(logrus.Fields{"kind": kind, "path": path}).Info("event")
	}).OnError(func(err error) {
		log.WithError(err).Error("monitor error")
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("paths", w.Config().Paths).Info("watching")
	return w.Run(ctx)
}
