package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/civic-certificate/internal/capture"
	"github.com/fpang/civic-certificate/internal/certificate"
	"github.com/fpang/civic-certificate/internal/cli"
	"github.com/fpang/civic-certificate/internal/config"
	"github.com/fpang/civic-certificate/internal/device"
	"github.com/fpang/civic-certificate/internal/logging"
	"github.com/fpang/civic-certificate/internal/metrics"
	"github.com/fpang/civic-certificate/internal/report"
	"github.com/fpang/civic-certificate/internal/share"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// CLI flags
var (
	photoFlag     string
	issueFlag     string
	latFlag       float64
	lonFlag       float64
	outFlag       string
	bundleFlag    string
	shareFlag     bool
	instagramFlag bool
	captionFlag   bool
	askFlag       bool
	debugFlag     bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "civic-certificate",
	Short: "Turn a photo of a civic issue into a satirical certificate",
	Long: `Civic Certificate takes a photo of a pothole, a flooded street or any other
neglected piece of public infrastructure, works out where it was taken, and
renders a mock "certificate of civic excellence" for it.

The position comes from the photo's EXIF GPS block unless --lat/--lon are
given. The address is looked up with OpenStreetMap Nominatim and the region
decides which decorative emblem is drawn.

Examples:
  civic-certificate --photo pothole.jpg --issue pothole
  civic-certificate -p street.png -i waterlogging --lat 28.6139 --lon 77.2090
  civic-certificate -p dump.jpg -i "garbage dump" --bundle dump.zip --share
  civic-certificate  # Interactive mode - native file picker and issue menu`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&photoFlag, "photo", "p", "", "Photo of the issue (opens a file picker when omitted)")
	rootCmd.Flags().StringVarP(&issueFlag, "issue", "i", "", "Issue type: pothole, waterlogging, garbage-dump, broken-streetlight, other")
	rootCmd.Flags().Float64Var(&latFlag, "lat", 0, "Latitude, overrides the photo's GPS data")
	rootCmd.Flags().Float64Var(&lonFlag, "lon", 0, "Longitude, overrides the photo's GPS data")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Certificate output path (default certificate-<id>.png)")
	rootCmd.Flags().StringVar(&bundleFlag, "bundle", "", "Also write a zip with the certificate, photo and report")
	rootCmd.Flags().BoolVar(&shareFlag, "share", false, "Upload the certificate to S3 and print a share link")
	rootCmd.Flags().BoolVar(&instagramFlag, "instagram", false, "With --share, also publish the certificate to Instagram")
	rootCmd.Flags().BoolVar(&captionFlag, "caption", false, "Print a generated social caption")
	rootCmd.Flags().BoolVar(&askFlag, "ask", false, "Ask for camera and location permission with native dialogs")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "Print capture flow debug output to stderr")
	rootCmd.MarkFlagsRequiredTogether("lat", "lon")

	rootCmd.AddCommand(matchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	if code := runSession(cmd); code != 0 {
		os.Exit(code)
	}
}

// runSession issues one certificate and returns the process exit code. It
// returns rather than exiting so deferred cleanup and metrics always run.
func runSession(cmd *cobra.Command) int {
	initStart := time.Now()
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if instagramFlag && !shareFlag {
		log.Fatal().Msg("--instagram requires --share")
	}

	var prompt device.Prompter = device.AllowAll{}
	if askFlag {
		prompt = device.NewDialogPrompter("Civic Certificate")
	}

	camera := &device.PhotoCamera{Prompt: prompt, Pick: device.PickPhoto}
	if photoFlag != "" {
		path, err := cli.ValidatePhotoPath(photoFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid photo")
		}
		camera.Path = path
	}

	var locator capture.Locator = &device.EXIFLocator{
		Path:   func() string { return camera.Path },
		Prompt: prompt,
	}
	if cmd.Flags().Changed("lat") {
		locator = &device.FixedLocator{Latitude: latFlag, Longitude: lonFlag, Prompt: prompt}
	}

	catalog, err := certificateRegions(cfg.Regions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load region catalog")
	}

	renderer := certificate.New(certificate.WithScale(cfg.Render.Scale))
	if err := renderer.Load(); err != nil {
		// The flow reports an unready renderer as a rendering failure.
		log.Error().Err(err).Msg("Failed to load certificate renderer")
	}

	sink := logging.DebugSink(debugFlag, os.Stderr)
	o, err := capture.New(capture.Deps{
		Camera:   camera,
		Locator:  locator,
		Geocoder: newGeocoder(cfg.Geocoder),
		Regions:  catalog,
		Renderer: renderer,
		Logger:   &sink,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize capture flow")
	}
	defer o.Reset()

	logging.NewStartupLogger("civic-certificate").
		Version(version).
		Endpoint("geocoder", cfg.Geocoder.BaseURL).
		SSMParam("instagramToken", cfg.Share.InstagramTokenParam).
		Feature("share", shareFlag).
		Feature("instagram", instagramFlag).
		Feature("caption", captionFlag).
		Feature("metrics", cfg.Metrics.Enabled).
		Feature("fixedLocation", cmd.Flags().Changed("lat")).
		Config("renderScale", fmt.Sprintf("%g", renderer.Scale())).
		Config("regions", fmt.Sprintf("%d", catalog.Len())).
		InitDuration(time.Since(initStart)).
		Log()

	session := metrics.Session{Outcome: metrics.OutcomeFailed}
	defer func() {
		if cfg.Metrics.Enabled {
			if err := metrics.RecordSession(os.Stdout, session); err != nil {
				log.Warn().Err(err).Msg("Failed to emit session metrics")
			}
		}
	}()

	if err := runFlow(ctx, o); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, cli.ErrNoSelection) {
			session.Outcome = metrics.OutcomeAbandoned
			log.Warn().Err(err).Msg("Session abandoned")
			return 1
		}
		msg := o.Message()
		if msg == "" {
			msg = err.Error()
		}
		fmt.Fprintln(os.Stderr, msg)
		log.Error().Err(err).Str("state", o.State().String()).Msg("Certificate session failed")
		return 1
	}

	rep := o.Report()
	timings := o.Timings()
	session = metrics.Session{
		ReportID:      rep.ID,
		Outcome:       metrics.OutcomeIssued,
		IssueType:     string(rep.IssueType),
		Region:        rep.Region,
		RegionMatched: rep.RegionImageRef != "",
		Position:      timings.Position,
		Geocode:       timings.Geocode,
		Render:        timings.Render,
		ArtifactBytes: len(rep.RenderedArtifact),
	}

	out := outFlag
	if out == "" {
		out = fmt.Sprintf("certificate-%s.png", shortID(rep.ID))
	}
	if err := writeFile(out, o.Download); err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("Failed to save certificate")
	}
	cli.PrintSummary(os.Stdout, rep, out)
	log.Info().
		Str("path", out).
		Str("position", cli.FormatDuration(timings.Position)).
		Str("geocode", cli.FormatDuration(timings.Geocode)).
		Str("render", cli.FormatDuration(timings.Render)).
		Msg("Certificate saved")

	if bundleFlag != "" {
		err := writeFile(bundleFlag, func(w io.Writer) error { return share.WriteBundle(w, rep) })
		if err != nil {
			log.Fatal().Err(err).Str("path", bundleFlag).Msg("Failed to write bundle")
		}
		fmt.Printf("  Bundle:   %s\n", bundleFlag)
	}

	captioner, err := newCaptioner(ctx, cfg.Caption)
	if err != nil {
		log.Warn().Err(err).Msg("Caption generator unavailable")
	}
	if captionFlag && captioner != nil {
		text, _ := captioner.Caption(ctx, rep)
		fmt.Printf("\n%s\n", text)
	}

	if shareFlag {
		sharer, err := newSharer(ctx, cfg.Share, instagramFlag, captioner)
		if err != nil {
			log.Fatal().Err(err).Msg("Sharing is not configured")
		}
		link, err := o.Share(ctx, sharer)
		if link != "" {
			session.Shared = true
			fmt.Printf("  Share:    %s\n", link)
		}
		if err != nil {
			log.Error().Err(err).Msg("Sharing failed")
			return 1
		}
	}
	return 0
}

// runFlow drives one session from Idle to Result.
func runFlow(ctx context.Context, o *capture.Orchestrator) error {
	if err := o.Start(); err != nil {
		return err
	}

	issue, err := resolveIssue()
	if err != nil {
		return err
	}
	if err := o.SelectIssue(ctx, issue); err != nil {
		return err
	}
	if err := o.WaitLocation(ctx); err != nil {
		return err
	}
	return o.Capture(ctx)
}

func resolveIssue() (report.IssueType, error) {
	if issueFlag != "" {
		return report.ParseIssueType(issueFlag)
	}
	return cli.PromptForIssue(os.Stdin, os.Stdout)
}

// writeFile creates path and hands it to write, removing the file when
// write fails.
func writeFile(path string, write func(io.Writer) error) error {
	if err := cli.ValidateOutputPath(path); err != nil {
		return err
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
