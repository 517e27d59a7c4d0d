// Command lessondeck generates and inspects lesson decks without the web UI.
//
//	lessondeck generate -date 2026-10-18 -audience youth -out lesson.pptx -image-timeout 30s
//	lessondeck inspect lesson.pptx
//	lessondeck sundays -n 4
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gnemet/LessonForge/internal/ai"
	"github.com/gnemet/LessonForge/internal/config"
	"github.com/gnemet/LessonForge/internal/images"
	"github.com/gnemet/LessonForge/internal/lesson"
	"github.com/gnemet/LessonForge/internal/logger"
	"github.com/gnemet/LessonForge/internal/planner"
	"github.com/gnemet/LessonForge/internal/pptx"
)

const dateLayout = "2006-01-02"

var errUsage = errors.New("usage: lessondeck <generate|inspect|sundays> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "lessondeck:", err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "generate":
		return runGenerate(ctx, args[1:], stdout, stderr)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "sundays":
		return runSundays(args[1:], stdout, stderr, time.Now())
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

// printProgress writes each pipeline status line to w.
type printProgress struct{ w io.Writer }

func (p printProgress) Identifying(message string) error {
	_, err := fmt.Fprintln(p.w, message)
	return err
}

func (p printProgress) Generating(message string) error {
	_, err := fmt.Fprintln(p.w, message)
	return err
}

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config.yaml", "path to config file")
	dateFlag := fs.String("date", "", "lesson Sunday as YYYY-MM-DD (default: next Sunday)")
	audienceFlag := fs.String("audience", lesson.GospelDoctrine.Key(), "primary, youth, gospel-doctrine or gospel-essentials")
	out := fs.String("out", "", "output file or directory (default: generated file name)")
	quiet := fs.Bool("quiet", false, "discard log output")
	imageTimeout := fs.Duration("image-timeout", 0, "per-image download timeout, overriding images.timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	date := lesson.UpcomingSundays(time.Now(), 1)[0]
	if *dateFlag != "" {
		d, err := time.ParseInLocation(dateLayout, *dateFlag, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -date %q, expected YYYY-MM-DD", *dateFlag)
		}
		date = d
	}
	audience, err := lesson.ParseAudience(*audienceFlag)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	log := logger.Nop()
	if !*quiet {
		if log, err = logger.New(cfg.Logging.Mode); err != nil {
			return err
		}
	}
	defer log.Sync()

	client, err := ai.NewClient(ctx, &cfg.AI, log)
	if err != nil {
		return err
	}
	defer client.Close()

	plan, err := planner.NewService(client, log).Generate(ctx, date, audience, printProgress{stderr})
	if err != nil {
		var se *planner.StepError
		if errors.As(err, &se) && se.Err != nil {
			log.Debug("Pipeline step failed", "step", se.Step, "cause", se.Err)
		}
		return err
	}
	for _, w := range lesson.Validate(plan) {
		log.Warn("Plan check", "warning", w)
	}

	fmt.Fprintf(stderr, "Exporting %d slides...\n", len(plan.Slides))
	fetcher := images.NewFetcher(cfg.Images)
	if *imageTimeout > 0 {
		fetcher = fetcher.WithTimeout(*imageTimeout)
	}
	pres, err := pptx.BuildLesson(ctx, plan, fetcher)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	data, err := pres.Bytes()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	name := pptx.FileName(plan.Topic)

	path := name
	if *out != "" {
		path = *out
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, name)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Wrote %d slides\n", pres.NumSlides())
	fmt.Fprintln(stdout, path)
	return nil
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print the inspected deck as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: inspect needs exactly one file", errUsage)
	}

	deck, err := pptx.Inspect(fs.Arg(0))
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(deck)
	}

	fmt.Fprintf(stdout, "Title: %s\n", deck.Title)
	fmt.Fprintf(stdout, "Size: %.2fin x %.2fin\n", float64(deck.Width)/pptx.EMUPerInch, float64(deck.Height)/pptx.EMUPerInch)
	for _, s := range deck.Slides {
		fmt.Fprintf(stdout, "Slide %d:\n", s.SlideNumber)
		fmt.Fprintf(stdout, "  Text: %s\n", s.Text)
		if s.BackgroundImage != "" {
			fmt.Fprintf(stdout, "  Background: %s\n", s.BackgroundImage)
		} else if s.BackgroundColor != "" {
			fmt.Fprintf(stdout, "  Background: %s\n", s.BackgroundColor)
		}
		for _, l := range s.Links {
			fmt.Fprintf(stdout, "  Link: %s\n", l)
		}
		if len(s.Notes) > 0 {
			fmt.Fprintf(stdout, "  Notes: %s\n", strings.Join(s.Notes, " / "))
		}
	}
	return nil
}

func runSundays(args []string, stdout, stderr io.Writer, now time.Time) error {
	fs := flag.NewFlagSet("sundays", flag.ContinueOnError)
	fs.SetOutput(stderr)
	n := fs.Int("n", 4, "number of Sundays to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < 1 {
		return fmt.Errorf("-n must be positive, got %d", *n)
	}
	for _, d := range lesson.UpcomingSundays(now, *n) {
		fmt.Fprintf(stdout, "%s  %s\n", d.Format(dateLayout), lesson.FormatDate(d))
	}
	return nil
}
