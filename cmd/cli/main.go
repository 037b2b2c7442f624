package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/render"
	"github.com/himanishpuri/BeatCraft/pkg/logger"
)

// Global flags
var (
	dbPath      string
	tempDir     string
	sampleRate  int
	timeout     time.Duration
	maxDuration time.Duration
	noHistory   bool
	logLevel    string
)

func init() {
	// Global flags that can be used with any command
	flag.StringVar(&dbPath, "db", getEnvOrDefault("BEATCRAFT_DB_PATH", "beatcraft.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("BEATCRAFT_TEMP_DIR", os.TempDir()), "Directory for downloads")
	flag.IntVar(&sampleRate, "rate", 44100, "Analysis sample rate")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Analysis timeout")
	flag.DurationVar(&maxDuration, "max-duration", 30*time.Second, "Maximum analysed audio length")
	flag.BoolVar(&noHistory, "no-history", false, "Do not store analyses")
	flag.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a new BeatCraft service with configured options
func createService() (beatcraft.Service, error) {
	opts := []beatcraft.Option{
		beatcraft.WithDBPath(dbPath),
		beatcraft.WithTempDir(tempDir),
		beatcraft.WithSampleRate(sampleRate),
		beatcraft.WithTimeout(timeout),
		beatcraft.WithMaxDuration(maxDuration),
		beatcraft.WithWorkers(1),
		beatcraft.WithLogger(logger.GetLogger().Named("service")),
	}
	if noHistory {
		opts = append(opts, beatcraft.WithoutHistory())
	}
	return beatcraft.NewService(opts...)
}

func mustService() beatcraft.Service {
	svc, err := createService()
	if err != nil {
		fail("Failed to create service", err)
	}
	return svc
}

func fail(msg string, err error) {
	fmt.Printf("❌ %s: %v\n", msg, err)
	logger.GetLogger().Errorf("%s: %v", msg, err)
	os.Exit(1)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()
	if level, ok := logger.ParseLevel(logLevel); ok {
		log.SetLevel(level)
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]
	log.Infof("Executing command: %s", command)

	switch command {
	case "analyze":
		handleAnalyze(rest)
	case "midi":
		handleMIDI(rest)
	case "pattern":
		handlePattern(rest)
	case "list":
		handleList(rest)
	case "show":
		handleShow(rest)
	case "delete":
		handleDelete(rest)
	case "render":
		handleRender(rest)
	case "fetch":
		handleFetch(rest)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// splitArgs separates a leading positional argument from the flags after it.
func splitArgs(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func analyzeFile(svc beatcraft.Service, path string) *beatcraft.Analysis {
	data, err := os.ReadFile(path)
	if err != nil {
		fail("Failed to read audio file", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout+10*time.Second)
	defer cancel()

	a, err := svc.Analyze(ctx, data, filepath.Base(path))
	if err != nil {
		fail("Analysis failed", err)
	}
	return a
}

func printAnalysis(a *beatcraft.Analysis, showBeats bool) {
	if a.ID != "" {
		fmt.Printf("   ID:       %s\n", a.ID)
	}
	fmt.Printf("   Source:   %s\n", a.Source)
	if a.YouTubeID != "" {
		fmt.Printf("   YouTube:  https://youtube.com/watch?v=%s\n", a.YouTubeID)
	}
	fmt.Printf("   Tempo:    %.2f BPM\n", a.Tempo)
	fmt.Printf("   Beats:    %d (%s)\n", len(a.BeatTimes), a.Strategy)
	fmt.Printf("   Swing:    %.3f\n", a.SwingRatio)
	fmt.Printf("   Duration: %.2fs\n", float64(a.DurationMs)/1000)
	if showBeats {
		parts := make([]string, len(a.BeatTimes))
		for i, t := range a.BeatTimes {
			parts[i] = fmt.Sprintf("%.3f", t)
		}
		fmt.Printf("   Times:    %s\n", strings.Join(parts, " "))
	}
}

func handleAnalyze(args []string) {
	path, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	asJSON := cmd.Bool("json", false, "Print the analysis as JSON")
	beats := cmd.Bool("beats", false, "Print every beat time")
	info := cmd.Bool("info", false, "Print file metadata (needs ffprobe)")
	cmd.Parse(flagArgs)

	if path == "" {
		fmt.Println("Usage: beatcraft analyze <audio_file> [-json] [-beats] [-info]")
		os.Exit(1)
	}

	if *info {
		printMetadata(path)
	}

	svc := mustService()
	defer svc.Close()

	a := analyzeFile(svc, path)
	if *asJSON {
		printJSON(a)
		return
	}

	fmt.Println("\n✅ Analysis complete")
	printAnalysis(a, *beats)
}

func printMetadata(path string) {
	meta, err := audio.ProbeFile(context.Background(), path)
	if err != nil {
		logger.GetLogger().Warnf("Could not read metadata of %s: %v", path, err)
		return
	}

	fmt.Printf("\n🎵 %s\n", meta.Filename)
	if meta.Title != "" || meta.Artist != "" {
		fmt.Printf("   Title:    %s\n", meta.Title)
		fmt.Printf("   Artist:   %s\n", meta.Artist)
	}
	fmt.Printf("   Format:   %s, %d Hz, %d ch", meta.Format, meta.SampleRate, meta.Channels)
	if meta.BitDepth > 0 {
		fmt.Printf(", %d-bit", meta.BitDepth)
	}
	fmt.Printf("\n   Length:   %.2fs\n", meta.DurationSec)
}

func handleMIDI(args []string) {
	path, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("midi", flag.ExitOnError)
	out := cmd.String("o", "drum_pattern.mid", "Output MIDI file")
	tmpl := cmd.String("pattern", "basic", "Pattern type: basic, hihat or full")
	velocity := cmd.Int("velocity", 100, "Note velocity (0-127)")
	swing := cmd.Bool("swing", false, "Apply the detected swing")
	cmd.Parse(flagArgs)

	if path == "" {
		fmt.Println("Usage: beatcraft midi <audio_file> -o out.mid [-pattern basic|hihat|full] [-velocity 100] [-swing]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	a := analyzeFile(svc, path)
	plan := svc.GeneratePattern(a.PatternRequest(pattern.ParseTemplate(*tmpl), *velocity, *swing))
	writeMIDI(svc, plan, *out)

	fmt.Printf("\n✅ Wrote %s pattern with %d notes to %s\n", pattern.ParseTemplate(*tmpl), plan.Len(), *out)
	printAnalysis(a, false)
}

func writeMIDI(svc beatcraft.Service, plan *pattern.Plan, out string) {
	data, err := svc.RenderMIDI(plan)
	if err != nil {
		fail("Failed to render MIDI", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fail("Failed to write MIDI file", err)
	}
}

// beatFile is the input of the pattern command. A bare JSON array of
// times is accepted too.
type beatFile struct {
	BeatTimes []float64 `json:"beat_times"`
	Tempo     float64   `json:"tempo"`
}

func readBeatFile(path string) (beatFile, error) {
	var bf beatFile
	data, err := os.ReadFile(path)
	if err != nil {
		return bf, err
	}
	if err := json.Unmarshal(data, &bf); err != nil {
		if err2 := json.Unmarshal(data, &bf.BeatTimes); err2 != nil {
			return bf, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if !sort.Float64sAreSorted(bf.BeatTimes) {
		return bf, errors.New("beat times must be increasing")
	}
	if bf.Tempo <= 0 {
		bf.Tempo = tempoFromBeats(bf.BeatTimes)
	}
	if bf.Tempo <= 0 {
		return bf, errors.New("tempo missing and cannot be derived from fewer than two beats")
	}
	return bf, nil
}

// tempoFromBeats derives BPM from the median inter-beat interval.
func tempoFromBeats(beats []float64) float64 {
	if len(beats) < 2 {
		return 0
	}
	intervals := make([]float64, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		intervals = append(intervals, beats[i]-beats[i-1])
	}
	sort.Float64s(intervals)
	median := stat.Quantile(0.5, stat.Empirical, intervals, nil)
	if median <= 0 {
		return 0
	}
	return 60 / median
}

func handlePattern(args []string) {
	cmd := flag.NewFlagSet("pattern", flag.ExitOnError)
	beatsPath := cmd.String("beats", "", "JSON file with beat times")
	tempoFlag := cmd.Float64("tempo", 0, "Tempo in BPM (default: from the file or the beats)")
	out := cmd.String("o", "", "Output MIDI file (default: print notes)")
	tmpl := cmd.String("pattern", "basic", "Pattern type: basic, hihat or full")
	velocity := cmd.Int("velocity", 100, "Note velocity (0-127)")
	swing := cmd.Float64("swing", 0.5, "Swing ratio to apply (0.5-0.75)")
	cmd.Parse(args)

	if *beatsPath == "" {
		fmt.Println("Usage: beatcraft pattern -beats beats.json [-tempo 120] [-o out.mid] [-pattern basic|hihat|full] [-swing 0.5]")
		os.Exit(1)
	}

	bf, err := readBeatFile(*beatsPath)
	if err != nil {
		fail("Invalid beat file", err)
	}
	if *tempoFlag > 0 {
		bf.Tempo = *tempoFlag
	}

	svc, err := beatcraft.NewService(beatcraft.WithoutHistory(), beatcraft.WithWorkers(1), beatcraft.WithLogger(logger.GetLogger()))
	if err != nil {
		fail("Failed to create service", err)
	}
	defer svc.Close()

	t := pattern.ParseTemplate(*tmpl)
	plan := svc.GeneratePattern(beatcraft.PatternRequest{
		BeatTimes:  bf.BeatTimes,
		Tempo:      bf.Tempo,
		Template:   t,
		Velocity:   *velocity,
		SwingRatio: *swing,
	})

	if *out != "" {
		writeMIDI(svc, plan, *out)
		fmt.Printf("✅ Wrote %s pattern with %d notes at %.2f BPM to %s\n", t, plan.Len(), bf.Tempo, *out)
		return
	}

	fmt.Printf("%s pattern at %.2f BPM, %d notes:\n", t, plan.Tempo(), plan.Len())
	for _, n := range plan.Notes() {
		fmt.Printf("  %8.3fs  %-13s key=%-3d vel=%d\n", n.Onset, n.Voice, n.Voice.MIDINote(), n.Velocity)
	}
}

func handleList(args []string) {
	cmd := flag.NewFlagSet("list", flag.ExitOnError)
	limit := cmd.Int("limit", 20, "Maximum analyses to show (0 = all)")
	cmd.Parse(args)

	svc := mustService()
	defer svc.Close()

	analyses, err := svc.ListAnalyses(*limit)
	if err != nil {
		fail("Failed to list analyses", err)
	}

	if len(analyses) == 0 {
		fmt.Println("\n📭 No analyses stored")
		return
	}

	fmt.Printf("\n📚 %d analysis(es):\n\n", len(analyses))
	for i, a := range analyses {
		fmt.Printf("%d. %s  %.2f BPM  swing %.3f  %d beats\n", i+1, a.Source, a.Tempo, a.SwingRatio, len(a.BeatTimes))
		fmt.Printf("   ID: %s  (%s)\n\n", a.ID, a.CreatedAt.Format(time.RFC3339))
	}
}

func handleShow(args []string) {
	id, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("show", flag.ExitOnError)
	asJSON := cmd.Bool("json", false, "Print the analysis as JSON")
	cmd.Parse(flagArgs)

	if id == "" {
		fmt.Println("Usage: beatcraft show <analysis_id> [-json]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	a, err := svc.GetAnalysis(id)
	if err != nil {
		fail("Analysis not found", err)
	}
	if *asJSON {
		printJSON(a)
		return
	}
	printAnalysis(a, true)
}

func handleDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: beatcraft delete <analysis_id>")
		os.Exit(1)
	}
	id := args[0]

	svc := mustService()
	defer svc.Close()

	if err := svc.DeleteAnalysis(id); err != nil {
		fail("Failed to delete analysis", err)
	}

	fmt.Printf("\n✅ Deleted analysis %s\n", id)
	logger.GetLogger().Infof("Deleted analysis %s", id)
}

func handleRender(args []string) {
	path, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("render", flag.ExitOnError)
	out := cmd.String("o", "spectrogram.png", "Output PNG file, or directory when rendering a directory")
	width := cmd.Int("width", 2048, "Image width")
	height := cmd.Int("height", 512, "Image height")
	cmd.Parse(flagArgs)

	if path == "" {
		fmt.Println("Usage: beatcraft render <audio_file|dir> -o out.png [-width 2048] [-height 512]")
		os.Exit(1)
	}

	opts := render.DefaultOptions()
	opts.Width, opts.Height = *width, *height

	svc := mustService()
	defer svc.Close()

	st, err := os.Stat(path)
	if err != nil {
		fail("Failed to open input", err)
	}
	if !st.IsDir() {
		n, err := renderFile(svc, path, *out, opts)
		if err != nil {
			fail("Failed to render spectrogram", err)
		}
		fmt.Printf("✅ Wrote spectrogram with %d beat markers to %s\n", n, *out)
		return
	}

	// Directory mode: one PNG per audio file, named after it.
	outDir := *out
	if filepath.Ext(outDir) == ".png" {
		outDir = "spectrograms"
	}
	rendered := 0
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(p))
		if d.IsDir() || (ext != ".wav" && ext != ".mp3") {
			return nil
		}

		dst := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))+".png")
		n, err := renderFile(svc, p, dst, opts)
		if err != nil {
			logger.GetLogger().Warnf("Skipping %s: %v", p, err)
			return nil
		}
		fmt.Printf("   %s -> %s (%d beats)\n", p, dst, n)
		rendered++
		return nil
	})
	if err != nil {
		fail("Failed to walk directory", err)
	}
	fmt.Printf("✅ Rendered %d spectrogram(s) into %s\n", rendered, outDir)
}

// renderFile analyses one file and draws its spectrogram with beat markers.
func renderFile(svc beatcraft.Service, path, out string, opts render.Options) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	w, err := audio.Load(ctx, data, audio.LoadOptions{TargetSampleRate: sampleRate, MaxDuration: maxDuration})
	if err != nil {
		return 0, err
	}

	a, err := svc.AnalyzeWaveform(ctx, w, filepath.Base(path))
	if err != nil {
		return 0, err
	}

	if err := render.Spectrogram(out, w, a.BeatTimes, opts); err != nil {
		return 0, err
	}
	return len(a.BeatTimes), nil
}

func handleFetch(args []string) {
	cmd := flag.NewFlagSet("fetch", flag.ExitOnError)
	youtubeURL := cmd.String("youtube-url", "", "YouTube URL to download and analyze")
	out := cmd.String("o", "", "Also write a drum MIDI file")
	tmpl := cmd.String("pattern", "basic", "Pattern type for -o")
	cmd.Parse(args)

	if *youtubeURL == "" {
		fmt.Println("Usage: beatcraft fetch -youtube-url <url> [-o out.mid] [-pattern basic|hihat|full]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	fmt.Println("📥 Downloading audio from YouTube...")
	fmt.Println("   This may take a few moments depending on video length")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := svc.AnalyzeYouTube(ctx, *youtubeURL)
	if err != nil {
		fail("Failed to analyze YouTube audio", err)
	}

	fmt.Println("\n✅ Analysis complete")
	printAnalysis(a, false)

	if *out != "" {
		plan := svc.GeneratePattern(a.PatternRequest(pattern.ParseTemplate(*tmpl), 100, false))
		writeMIDI(svc, plan, *out)
		fmt.Printf("   MIDI:     %s (%d notes)\n", *out, plan.Len())
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("Failed to encode JSON", err)
	}
}

func printUsage() {
	fmt.Println("BeatCraft - tempo, beat and swing analysis with drum MIDI generation")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  -db <path>            Path to SQLite database (env: BEATCRAFT_DB_PATH, default: beatcraft.sqlite3)")
	fmt.Println("  -temp <dir>           Directory for downloads (env: BEATCRAFT_TEMP_DIR)")
	fmt.Println("  -rate <hz>            Analysis sample rate (default: 44100)")
	fmt.Println("  -timeout <dur>        Analysis timeout (default: 2m)")
	fmt.Println("  -max-duration <dur>   Maximum analysed audio length (default: 30s)")
	fmt.Println("  -no-history           Do not store analyses")
	fmt.Println("  -log-level <level>    debug, info, warn or error (env: LOG_LEVEL)")
	fmt.Println("\nUsage:")
	fmt.Println("  beatcraft [global-options] analyze <audio_file> [-json] [-beats] [-info]")
	fmt.Println("  beatcraft [global-options] midi <audio_file> -o out.mid [-pattern basic|hihat|full] [-velocity 100] [-swing]")
	fmt.Println("  beatcraft [global-options] pattern -beats beats.json [-tempo 120] [-o out.mid] [-swing 0.6]")
	fmt.Println("  beatcraft [global-options] list [-limit 20]")
	fmt.Println("  beatcraft [global-options] show <analysis_id> [-json]")
	fmt.Println("  beatcraft [global-options] delete <analysis_id>")
	fmt.Println("  beatcraft [global-options] render <audio_file|dir> -o out.png")
	fmt.Println("  beatcraft [global-options] fetch -youtube-url <url> [-o out.mid]")
	fmt.Println("\nExamples:")
	fmt.Println("  beatcraft midi loop.wav -o loop.mid -pattern full -swing")
	fmt.Println("  beatcraft -no-history analyze song.mp3 -beats")
	fmt.Println("  beatcraft fetch -youtube-url \"https://youtu.be/dQw4w9WgXcQ\"")
}
