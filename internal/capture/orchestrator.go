// Package capture sequences a certificate session: pick an issue type,
// open the camera, get a position fix, resolve the address in the
// background, take one still frame and render the certificate.
//
// States move strictly forward
//
//	Idle → SelectingIssue → Capturing → Rendering → Result
//
// and every failure drops back to Idle with the camera released and a
// single user-facing message set. Reset returns to Idle from anywhere.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fpang/civic-certificate/internal/report"
)

// State is a step of the session.
type State int

const (
	StateIdle State = iota
	StateSelectingIssue
	StateCapturing
	StateRendering
	StateResult
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelectingIssue:
		return "selecting-issue"
	case StateCapturing:
		return "capturing"
	case StateRendering:
		return "rendering"
	case StateResult:
		return "result"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// jpegQuality is used when encoding the captured frame.
const jpegQuality = 92

// Deps are the collaborators injected into an Orchestrator. Camera,
// Locator and Renderer are required.
type Deps struct {
	Camera   Camera
	Locator  Locator
	Geocoder Geocoder
	Regions  RegionMatcher
	Renderer Renderer

	// Logger receives debug output, typically from logging.DebugSink.
	// Nil discards everything.
	Logger *zerolog.Logger

	// PositionOptions default to DefaultPositionOptions.
	PositionOptions *PositionOptions

	Now   func() time.Time
	NewID func() string
}

// Timings records how long the slow steps took in the current session.
type Timings struct {
	Position time.Duration
	Geocode  time.Duration
	Render   time.Duration
}

// Orchestrator owns one session. Its methods are safe to call from
// multiple goroutines but are serialized; the flow itself is sequential.
type Orchestrator struct {
	camera   Camera
	locator  Locator
	geocoder Geocoder
	regions  RegionMatcher
	renderer Renderer
	log      zerolog.Logger
	posOpts  PositionOptions
	now      func() time.Time
	newID    func() string

	// op serializes user actions.
	op sync.Mutex

	// mu guards the fields below; the background lookup writes under it.
	mu           sync.Mutex
	state        State
	report       report.IssueReport
	stream       Stream
	message      string
	generation   uint64
	timings      Timings
	lookupCancel context.CancelFunc
	lookupDone   chan struct{}
}

// New creates an Orchestrator in the Idle state.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Camera == nil {
		return nil, errors.New("capture: camera is required")
	}
	if deps.Locator == nil {
		return nil, errors.New("capture: locator is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("capture: renderer is required")
	}

	o := &Orchestrator{
		camera:   deps.Camera,
		locator:  deps.Locator,
		geocoder: deps.Geocoder,
		regions:  deps.Regions,
		renderer: deps.Renderer,
		log:      zerolog.Nop(),
		posOpts:  DefaultPositionOptions,
		now:      deps.Now,
		newID:    deps.NewID,
	}
	if deps.Logger != nil {
		o.log = *deps.Logger
	}
	if deps.PositionOptions != nil {
		o.posOpts = *deps.PositionOptions
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// Start moves Idle → SelectingIssue and opens a fresh report.
func (o *Orchestrator) Start() error {
	o.op.Lock()
	defer o.op.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return fmt.Errorf("start from %s: %w", o.state, ErrInvalidTransition)
	}
	o.generation++
	o.report = report.IssueReport{ID: o.newID(), CreatedAt: o.now()}
	o.message = ""
	o.timings = Timings{}
	o.state = StateSelectingIssue

	o.log.Debug().Str("sessionId", o.report.ID).Msg("Session started")
	return nil
}

// SelectIssue records the issue type, opens the camera and takes a
// position fix, then starts the address lookup in the background.
// On success the session is Capturing; on failure it is Idle.
func (o *Orchestrator) SelectIssue(ctx context.Context, issue report.IssueType) error {
	o.op.Lock()
	defer o.op.Unlock()

	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	if state != StateSelectingIssue {
		return fmt.Errorf("select issue from %s: %w", state, ErrInvalidTransition)
	}
	if !issue.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownIssue, issue)
	}

	o.log.Debug().Str("issueType", string(issue)).Msg("Opening camera")
	stream, err := o.camera.Open(ctx, FacingEnvironment)
	if err != nil {
		if stream != nil {
			stream.Stop()
		}
		return o.fail(ErrCameraPermission, MsgCameraPermission, err)
	}

	o.mu.Lock()
	o.stream = stream
	o.mu.Unlock()

	o.log.Debug().
		Bool("highAccuracy", o.posOpts.EnableHighAccuracy).
		Dur("timeout", o.posOpts.Timeout).
		Dur("maximumAge", o.posOpts.MaximumAge).
		Msg("Requesting position")

	posStart := o.now()
	lctx, cancel := context.WithTimeout(ctx, o.posOpts.Timeout)
	pos, err := o.locator.CurrentPosition(lctx, o.posOpts)
	if err == nil {
		// A locator that ignores its context may return late.
		err = lctx.Err()
	}
	if err != nil {
		kind, msg := classifyPosition(ctx, lctx, err)
		cancel()
		return o.fail(kind, msg, err)
	}
	cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.timings.Position = o.now().Sub(posStart)
	o.report.IssueType = issue
	o.state = StateCapturing
	o.startLookupLocked(o.generation, pos)

	o.log.Debug().
		Float64("lat", pos.Latitude).
		Float64("lon", pos.Longitude).
		Dur("elapsed", o.timings.Position).
		Msg("Position acquired, resolving address")
	return nil
}

// startLookupLocked resolves the address and imagery for pos without
// blocking the caller. Results from an older generation are dropped.
func (o *Orchestrator) startLookupLocked(gen uint64, pos Position) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.lookupCancel = cancel
	o.lookupDone = done

	go func() {
		defer close(done)

		start := o.now()
		address, region, imageRef := o.resolve(ctx, pos)
		elapsed := o.now().Sub(start)

		o.mu.Lock()
		defer o.mu.Unlock()
		if o.generation != gen || ctx.Err() != nil {
			o.log.Debug().Msg("Discarding stale address lookup")
			return
		}
		o.report.Location = &report.Location{
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
			Address:   address,
		}
		o.report.Region = region
		o.report.RegionImageRef = imageRef
		o.timings.Geocode = elapsed

		o.log.Debug().
			Str("region", region).
			Str("imageRef", imageRef).
			Dur("elapsed", elapsed).
			Msg("Location resolved")
	}()
}

// resolve never fails: a missing address falls back to
// report.AddressNotFound and a missing region to no imagery.
func (o *Orchestrator) resolve(ctx context.Context, pos Position) (address, region, imageRef string) {
	address = report.AddressNotFound
	if o.geocoder == nil {
		return address, "", ""
	}

	place, err := o.geocoder.Reverse(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		o.log.Warn().Err(err).Msg("Reverse geocoding failed, continuing without address")
		return address, "", ""
	}
	if place == nil {
		return address, "", ""
	}
	if place.DisplayName != "" {
		address = place.DisplayName
	}
	region = place.Region
	if o.regions != nil {
		imageRef = o.regions.Lookup(region)
	}
	if imageRef == "" {
		o.log.Debug().Str("region", region).Msg("No decorative imagery for region")
	}
	return address, region, imageRef
}

// WaitLocation blocks until the background lookup has populated the
// report's location, or ctx ends.
func (o *Orchestrator) WaitLocation(ctx context.Context) error {
	o.mu.Lock()
	state := o.state
	done := o.lookupDone
	o.mu.Unlock()

	if state != StateCapturing || done == nil {
		return fmt.Errorf("wait for location in %s: %w", state, ErrInvalidTransition)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.report.Location == nil {
		// The lookup was cancelled by a reset.
		return fmt.Errorf("wait for location: %w", ErrInvalidTransition)
	}
	return nil
}

// LocationReady reports whether Capture is allowed.
func (o *Orchestrator) LocationReady() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateCapturing && o.report.Location != nil && o.stream != nil
}

// Capture takes one still frame, releases the camera and renders the
// certificate. On success the session is in Result.
func (o *Orchestrator) Capture(ctx context.Context) error {
	o.op.Lock()
	defer o.op.Unlock()

	o.mu.Lock()
	if o.state != StateCapturing {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("capture from %s: %w", state, ErrInvalidTransition)
	}
	if o.report.Location == nil {
		o.mu.Unlock()
		return ErrLocationPending
	}
	stream := o.stream
	o.mu.Unlock()

	if stream == nil {
		return o.fail(ErrCameraPermission, MsgCameraPermission, errors.New("no active camera stream"))
	}

	frame, err := stream.Frame()
	o.releaseStream()
	if err != nil {
		return o.fail(ErrCaptureFailed, MsgCaptureFailed, err)
	}

	img, err := encodeFrame(frame)
	if err != nil {
		return o.fail(ErrCaptureFailed, MsgCaptureFailed, err)
	}

	o.mu.Lock()
	o.report.CapturedImage = img
	o.state = StateRendering
	o.mu.Unlock()

	o.log.Debug().Int("width", img.Width).Int("height", img.Height).Int("bytes", len(img.Data)).Msg("Frame captured")

	return o.render(ctx)
}

// render performs Rendering → Result. It refuses to produce a partial
// certificate.
func (o *Orchestrator) render(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateRendering {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("render from %s: %w", state, ErrInvalidTransition)
	}
	snapshot := o.report.Clone()
	o.mu.Unlock()

	if !snapshot.Renderable() {
		return o.fail(ErrRenderFailed, MsgRenderFailed, fmt.Errorf("incomplete report, missing %v", snapshot.Missing()))
	}
	if !o.renderer.Ready() {
		return o.fail(ErrRenderFailed, MsgRenderFailed, ErrRendererNotReady)
	}

	start := o.now()
	artifact, err := o.renderer.Render(ctx, snapshot)
	elapsed := o.now().Sub(start)
	if err != nil {
		return o.fail(ErrRenderFailed, MsgRenderFailed, err)
	}
	if len(artifact) == 0 {
		return o.fail(ErrRenderFailed, MsgRenderFailed, errors.New("renderer returned an empty image"))
	}

	o.mu.Lock()
	o.report.RenderedArtifact = artifact
	o.timings.Render = elapsed
	o.state = StateResult
	o.mu.Unlock()

	o.log.Debug().Int("bytes", len(artifact)).Dur("elapsed", elapsed).Msg("Certificate rendered")
	return nil
}

// Download writes the rendered certificate to w.
func (o *Orchestrator) Download(w io.Writer) error {
	o.mu.Lock()
	if o.state != StateResult {
		o.mu.Unlock()
		return ErrNoArtifact
	}
	artifact := o.report.RenderedArtifact
	o.mu.Unlock()

	if _, err := w.Write(artifact); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	return nil
}

// Share hands the finished report to s. A share failure leaves the
// session in Result so the user can retry or download instead, and any
// link s produced before failing is returned with the error.
func (o *Orchestrator) Share(ctx context.Context, s Sharer) (string, error) {
	o.mu.Lock()
	if o.state != StateResult {
		o.mu.Unlock()
		return "", ErrNoArtifact
	}
	snapshot := o.report.Clone()
	o.mu.Unlock()

	// A sharer may fail after the upload; the link is still returned.
	link, err := s.Share(ctx, snapshot)
	if err != nil {
		return link, fmt.Errorf("share certificate: %w", err)
	}
	return link, nil
}

// Reset returns to Idle from any state, cancelling the address lookup,
// releasing the camera and clearing the report and message together.
func (o *Orchestrator) Reset() {
	o.op.Lock()
	defer o.op.Unlock()

	o.stopLookup()
	o.releaseStream()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.state = StateIdle
	o.report = report.IssueReport{}
	o.message = ""
	o.timings = Timings{}

	o.log.Debug().Msg("Session reset")
}

// fail releases everything, returns to Idle and sets msg as the only
// visible message.
func (o *Orchestrator) fail(kind error, msg string, cause error) error {
	o.stopLookup()
	o.releaseStream()

	o.mu.Lock()
	from := o.state
	o.generation++
	o.state = StateIdle
	o.report = report.IssueReport{}
	o.message = msg
	o.mu.Unlock()

	o.log.Warn().Err(cause).Str("from", from.String()).Str("kind", kind.Error()).Msg("Session failed")
	return &FlowError{Kind: kind, Message: msg, Err: cause}
}

// stopLookup cancels the background lookup and waits for it to exit.
// Callers must not hold mu.
func (o *Orchestrator) stopLookup() {
	o.mu.Lock()
	cancel, done := o.lookupCancel, o.lookupDone
	o.lookupCancel, o.lookupDone = nil, nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (o *Orchestrator) releaseStream() {
	o.mu.Lock()
	s := o.stream
	o.stream = nil
	o.mu.Unlock()

	if s != nil {
		s.Stop()
		o.log.Debug().Msg("Camera released")
	}
}

// State returns the current step.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Message returns the visible error message, or "".
func (o *Orchestrator) Message() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.message
}

// Report returns a copy of the session's report.
func (o *Orchestrator) Report() report.IssueReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.report.Clone()
}

// StreamActive reports whether a camera stream is held.
func (o *Orchestrator) StreamActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stream != nil
}

// Timings returns the step durations of the current session.
func (o *Orchestrator) Timings() Timings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.timings
}

func encodeFrame(frame image.Image) (*report.Image, error) {
	if frame == nil {
		return nil, errors.New("camera returned no frame")
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil, errors.New("camera returned an empty frame")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return &report.Image{
		Data:     buf.Bytes(),
		MIMEType: "image/jpeg",
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}
