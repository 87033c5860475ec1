package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/clearspeech/disfluency/analyze"
	"github.com/clearspeech/disfluency/classify"
	"github.com/clearspeech/disfluency/config"
	"github.com/clearspeech/disfluency/decode"
	"github.com/clearspeech/disfluency/logging"
	"github.com/clearspeech/disfluency/metrics"
	"github.com/clearspeech/disfluency/stream"
)

const (
	serviceName    = "disfluency"
	serviceVersion = "1.0.0"
)

// chunkSize mimics a capture callback delivering small non-uniform PCM
// buffers rather than the whole file at once.
const chunkSize = 4096

var (
	configPath   string
	presetName   string
	endpoint     string
	apiKey       string
	modelVersion string
	metricsAddr  string
	rawInput     bool
	pretty       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "disfluency <recording>",
		Short: "Stream a recording and report disfluency events",
		Long: "Decodes an audio file (any format the system ffmpeg understands, or\n" +
			"raw little-endian 16-bit mono PCM with --raw), streams it through the\n" +
			"spectrogram pipeline, then runs the post-recording classification\n" +
			"pass and prints the analysis result as JSON.",
		Args:    cobra.ExactArgs(1),
		Version: serviceVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0])
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")
	rootCmd.Flags().StringVarP(&presetName, "preset", "p", config.PresetStreaming, "named configuration preset")
	rootCmd.Flags().StringVar(&endpoint, "endpoint", "", "classifier service URL (omit to skip classification)")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "classifier service API key")
	rootCmd.Flags().StringVar(&modelVersion, "model-version", "", "model version stamped onto events")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (e.g. :9090)")
	rootCmd.Flags().BoolVar(&rawInput, "raw", false, "treat the input as raw s16le mono PCM at the configured rate")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	cfg, err := config.Load(configPath, presetName)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.SetLevel(cfg.Logging.Level)
	logger := logging.WithFields(logging.Fields{
		"service": serviceName,
		"version": serviceVersion,
	})

	appMetrics := metrics.NewMetrics()
	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}

	logger.Info("configuration loaded", logging.Fields{
		"preset":      presetName,
		"sample_rate": cfg.Window.SampleRate,
		"fft_size":    cfg.Window.FFTSize,
		"hop_size":    cfg.Window.HopSize,
		"num_bands":   cfg.Window.NumBands,
		"policy":      cfg.Classification.Policy,
	})

	session, err := stream.NewSession(cfg, appMetrics)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if rawInput {
		err = streamRawFile(session, path)
	} else {
		err = streamDecodedFile(ctx, session, path, cfg.Window.SampleRate)
	}
	if err != nil {
		return err
	}

	logger.Info("capture finished", logging.Fields{
		"columns":    session.ColumnCount(),
		"duration_s": session.Duration().Seconds(),
		"delay_ms":   session.Compensator().Delay().Milliseconds(),
	})

	var predictor classify.Predictor
	if endpoint != "" {
		httpPredictor, err := classify.NewHTTPPredictor(classify.HTTPConfig{
			Endpoint:     endpoint,
			APIKey:       apiKey,
			ModelVersion: modelVersion,
		}, classify.DefaultVocabulary())
		if err != nil {
			return fmt.Errorf("failed to create classifier client: %w", err)
		}
		defer httpPredictor.Close()
		predictor = httpPredictor
	}

	analyzer, err := analyze.NewAnalyzer(cfg, predictor, appMetrics)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	result, err := analyzer.Analyze(ctx, session.Finish(), session.SampleRate())
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return printResult(result)
}

// streamDecodedFile decodes an audio file via ffmpeg and feeds it through
// the session in small chunks, mimicking live capture.
func streamDecodedFile(ctx context.Context, session *stream.Session, path string, sampleRate int) error {
	decoder := decode.NewDecoder(&decode.DecoderConfig{
		TargetSampleRate: sampleRate,
		FFmpegPath:       "ffmpeg",
		Timeout:          60 * time.Second,
	})

	audio, err := decoder.DecodeFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to decode recording: %w", err)
	}

	pcm := decode.EncodePCM16(audio.PCM)
	for start := 0; start < len(pcm); start += chunkSize {
		end := min(start+chunkSize, len(pcm))
		if err := session.IngestPCM16(pcm[start:end]); err != nil {
			return fmt.Errorf("failed to ingest audio: %w", err)
		}
	}
	return nil
}

// streamRawFile feeds a raw s16le PCM file through the session.
func streamRawFile(session *stream.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if ingestErr := session.IngestPCM16(buf[:n]); ingestErr != nil {
				return fmt.Errorf("failed to ingest audio: %w", ingestErr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read recording: %w", err)
		}
	}
}

func printResult(result *analyze.Result) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func serveMetrics(addr string, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("serving metrics", logging.Fields{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(err, "metrics server stopped")
	}
}
