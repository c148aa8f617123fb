package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"vid2mp3/internal/config"
	"vid2mp3/internal/convert"
	"vid2mp3/internal/diagnostics"
	"vid2mp3/internal/domain"
	"vid2mp3/internal/jobs"
	"vid2mp3/internal/logging"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Video files",
		Pattern:     videoDialogPattern(),
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, jobs, subprocess work, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Thumbnails  *jobs.ThumbnailCell
	Converter   converter
	Thumbnailer thumbnailer
	Diagnostics domain.DiagnosticReport
	assets      fs.FS

	scratchDir string
	checker    *diagnostics.Checker
	runner     *jobs.Runner
	events     *jobs.EventBus
	logger     *slog.Logger

	mu         sync.Mutex
	selection  domain.Selection
	runtimeCtx context.Context
}

// converter isolates the ffmpeg conversion command behind an interface.
type converter interface {
	Convert(ctx context.Context, req convert.Request) (convert.CommandLog, error)
}

// thumbnailer isolates preview frame extraction behind an interface.
type thumbnailer interface {
	Extract(ctx context.Context, videoPath string) (string, convert.CommandLog, error)
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".vid2mp3", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: settings.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	thumbnailer := convert.NewThumbnailer(settings.FFmpegPath)
	scratchDir := thumbnailer.ScratchDir()
	checker := diagnostics.NewChecker(scratchDir)
	report := checker.Run(settings)

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Thumbnails:  jobs.NewThumbnailCell(),
		Converter:   convert.NewConverter(settings.FFmpegPath),
		Thumbnailer: thumbnailer,
		Diagnostics: report,
		assets:      assets,
		scratchDir:  scratchDir,
		checker:     checker,
		runner:      jobs.NewRunner(),
		events:      jobs.NewEventBus(500),
		logger:      logging.NewComponentLogger(logger, "app"),
	}, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{
		Handler: a.assetHandler(),
	}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	}

	return wails.Run(&options.App{
		Title:         "Video to MP3",
		Width:         420,
		Height:        640,
		DisableResize: true,
		AssetServer:   assetOptions,
		OnStartup:     a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop: true,
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context and registers the file drop handler.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	wailsruntime.OnFileDrop(ctx, func(x, y int, paths []string) {
		if len(paths) == 0 {
			return
		}
		if _, err := a.SelectInput(paths[0]); err != nil {
			a.logger.Warn("ignore dropped file", slog.String("error", err.Error()))
		}
	})
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, rebuilds the ffmpeg
// front ends with the new tool path, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	a.Converter = convert.NewConverter(normalized.FFmpegPath)
	a.Thumbnailer = convert.NewThumbnailer(normalized.FFmpegPath)
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// PickInputFile opens a native file dialog for video selection. Cancelling
// the dialog returns a zero selection and no error.
func (a *App) PickInputFile() (domain.Selection, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.Selection{}, err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select video file",
		Filters: videoDialogFilter,
	})
	if err != nil {
		return domain.Selection{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.Selection{}, nil
	}

	return a.SelectInput(path)
}

// SelectInput replaces the current selection, resets both cells, and kicks
// off preview extraction. Dropped and picked paths both land here.
func (a *App) SelectInput(path string) (domain.Selection, error) {
	selection := domain.NewSelection(path)
	if !selection.Valid() {
		return domain.Selection{}, fmt.Errorf("no file selected")
	}

	a.mu.Lock()
	a.selection = selection
	thumbnailer := a.Thumbnailer
	a.mu.Unlock()

	a.Jobs.Reset()
	a.Thumbnails.Reset()
	a.publishStatus("", domain.ConversionStateIdle, "Selected "+filepath.Base(selection.InputPath))

	a.runner.Spawn(func() {
		a.runThumbnailJob(selection.InputPath, thumbnailer)
	})

	return selection, nil
}

// Convert starts the conversion job for the current selection and returns
// immediately. A second call while one is running fails the Begin gate.
func (a *App) Convert() (domain.ConversionStatus, error) {
	a.mu.Lock()
	selection := a.selection
	conv := a.Converter
	a.mu.Unlock()

	if !selection.Valid() {
		return domain.ConversionStatus{}, fmt.Errorf("no input selected")
	}

	if err := a.Jobs.Begin(); err != nil {
		return domain.ConversionStatus{}, err
	}

	jobID := uuid.New().String()
	status := a.Jobs.Current()
	a.publishStatus(jobID, status.State, "Converting "+filepath.Base(selection.InputPath))

	a.runner.Spawn(func() {
		a.runConversionJob(jobID, selection, conv)
	})

	return status, nil
}

// Snapshot assembles the per-tick view the frontend polls.
func (a *App) Snapshot() domain.Snapshot {
	a.mu.Lock()
	selection := a.selection
	a.mu.Unlock()

	status := a.Jobs.Current()
	thumbnailPath := a.Thumbnails.Current()

	snapshot := domain.Snapshot{
		Input:         selection.InputPath,
		Output:        selection.OutputPath,
		Status:        status,
		ThumbnailPath: thumbnailPath,
		CanConvert:    selection.Valid() && status.State != domain.ConversionStateConverting,
	}
	if thumbnailPath != "" {
		snapshot.ThumbnailURL = "/thumbnails/" + filepath.Base(thumbnailPath)
	}
	return snapshot
}

// RevealOutput shows the converted file in the platform file manager.
func (a *App) RevealOutput() error {
	a.mu.Lock()
	output := a.selection.OutputPath
	a.mu.Unlock()

	if output == "" {
		return fmt.Errorf("no output to reveal")
	}
	if _, err := os.Stat(output); err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	return revealInFileManager(output)
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()

	return report, nil
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// runConversionJob executes ffmpeg and finishes the status cell exactly once.
func (a *App) runConversionJob(jobID string, selection domain.Selection, conv converter) {
	log, err := conv.Convert(context.Background(), convert.Request{
		InputPath:  selection.InputPath,
		OutputPath: selection.OutputPath,
	})
	if log.Command != "" {
		a.publishEvent(jobs.Event{
			JobID:    jobID,
			Type:     jobs.EventTypeLog,
			Message:  "Command completed",
			Command:  log.Command,
			Args:     log.Args,
			ExitCode: log.ExitCode,
			Stdout:   log.Stdout,
			Stderr:   log.Stderr,
		})
	}

	status := conversionOutcome(err)
	a.Jobs.Finish(status)

	if status.State == domain.ConversionStateDone {
		a.logger.Info("conversion finished", slog.String("output", selection.OutputPath))
		a.publishStatus(jobID, status.State, "Conversion completed")
		a.publishEvent(jobs.Event{
			JobID:      jobID,
			Type:       jobs.EventTypeResult,
			State:      status.State,
			Message:    "MP3 exported",
			OutputPath: selection.OutputPath,
		})
		return
	}

	a.logger.Warn("conversion failed",
		slog.String("input", selection.InputPath),
		slog.String("error", err.Error()))
	a.publishStatus(jobID, status.State, "Conversion failed")
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeError,
		State:   status.State,
		Message: status.Message,
	})
}

// runThumbnailJob extracts a preview frame. Failures never surface in the
// status cell; the preview area just keeps its placeholder.
func (a *App) runThumbnailJob(inputPath string, thumb thumbnailer) {
	thumbnailPath, log, err := thumb.Extract(context.Background(), inputPath)
	if err != nil {
		a.logger.Debug("thumbnail extraction failed",
			slog.String("input", inputPath),
			slog.String("error", err.Error()))
		if log.Command != "" {
			a.publishEvent(jobs.Event{
				Type:     jobs.EventTypeLog,
				Message:  "Thumbnail unavailable",
				Command:  log.Command,
				Args:     log.Args,
				ExitCode: log.ExitCode,
				Stderr:   log.Stderr,
			})
		}
		return
	}

	a.Thumbnails.Set(thumbnailPath)
	a.publishEvent(jobs.Event{
		Type:          jobs.EventTypeLog,
		Message:       "Thumbnail ready",
		Command:       log.Command,
		Args:          log.Args,
		ExitCode:      log.ExitCode,
		ThumbnailPath: thumbnailPath,
	})
}

// conversionOutcome maps a converter error onto the terminal status shown to
// the user. Tool failures surface ffmpeg's stderr verbatim.
func conversionOutcome(err error) domain.ConversionStatus {
	if err == nil {
		return domain.ConversionStatus{State: domain.ConversionStateDone}
	}

	var toolErr *convert.ToolError
	if errors.As(err, &toolErr) {
		return domain.ConversionStatus{State: domain.ConversionStateError, Message: toolErr.Stderr}
	}

	var spawnErr *convert.SpawnError
	if errors.As(err, &spawnErr) {
		return domain.ConversionStatus{State: domain.ConversionStateError, Message: spawnErr.Error()}
	}

	return domain.ConversionStatus{State: domain.ConversionStateError, Message: err.Error()}
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, state domain.ConversionState, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		State:   state,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and restores defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.FFmpegPath = strings.TrimSpace(settings.FFmpegPath)
	settings.LogLevel = strings.TrimSpace(settings.LogLevel)

	defaults := config.DefaultSettings()
	if settings.FFmpegPath == "" {
		settings.FFmpegPath = defaults.FFmpegPath
	}
	if settings.LogLevel == "" {
		settings.LogLevel = defaults.LogLevel
	}
	return settings
}

// revealInFileManager opens the platform file browser with the converted file
// selected where the platform supports selection.
func revealInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", "-R", path)
	case "windows":
		cmd = exec.Command("explorer", "/select,"+filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", filepath.Dir(path))
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}

// assetHandler serves thumbnail previews from the scratch directory and, when
// no embedded assets are configured, frontend files straight from disk.
func (a *App) assetHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/thumbnails/", http.StripPrefix("/thumbnails/", http.HandlerFunc(a.serveThumbnail)))
	if a.assets == nil {
		mux.Handle("/", http.FileServer(http.Dir("./frontend")))
	}
	return mux
}

// serveThumbnail serves a single preview image by base name. Only files
// directly inside the scratch directory are reachable.
func (a *App) serveThumbnail(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/"))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(a.scratchDir, name))
}

// videoDialogPattern renders the advisory extension list as a dialog pattern.
func videoDialogPattern() string {
	patterns := make([]string, 0, len(domain.VideoExtensions))
	for _, ext := range domain.VideoExtensions {
		patterns = append(patterns, "*."+ext)
	}
	return strings.Join(patterns, ";")
}
