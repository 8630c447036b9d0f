package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the rotating log file inside the log directory.
const FileName = "flowviz.log"

// Init sets up the global logger with two sinks: stderr and a rotating file.
// The console shows warnings and above unless verbose; the file records info
// and above (debug when verbose). The log directory is LOGS_FOLDER, read from
// the environment or a .env next to the binary, else fallbackDir/logs.
// When the directory is unusable, logging continues on stderr only and the
// error is returned.
func Init(verbose bool, fallbackDir string) error {
	// .env is loaded here because Init runs before config.Load.
	if exePath, err := os.Executable(); err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	fileLevel, consoleLevel := zerolog.InfoLevel, zerolog.WarnLevel
	if verbose {
		fileLevel, consoleLevel = zerolog.DebugLevel, zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(fileLevel)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	console := levelFilter{
		min: consoleLevel,
		w: zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal,
		},
	}

	logDir := Dir(fallbackDir)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return fmt.Errorf("create log directory %q: %w", logDir, err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     365, // days
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(console, fileWriter)
	log.Logger = zerolog.New(multi).
		With().
		Timestamp().
		Logger()
	return nil
}

// Dir resolves the log directory.
func Dir(fallbackDir string) string {
	if d := os.Getenv("LOGS_FOLDER"); d != "" {
		return d
	}
	if fallbackDir == "" {
		return "logs"
	}
	return filepath.Join(fallbackDir, "logs")
}

// levelFilter drops events below min before they reach w.
type levelFilter struct {
	min zerolog.Level
	w   io.Writer
}

func (f levelFilter) Write(p []byte) (int, error) { return f.w.Write(p) }

func (f levelFilter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}
