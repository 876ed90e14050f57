package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"srtvoice/pkg/config"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

const envFile = ".env"

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for srtvoice",
	Long:  `Check the audio toolchain, create working directories and write API keys to .env.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎙 srtvoice Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Checking ffmpeg", checkFFmpeg},
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func checkFFmpeg() error {
	if commandExists("ffmpeg") && commandExists("ffprobe") {
		fmt.Println(successStyle.Render("✓ ffmpeg and ffprobe found"))
		return nil
	}

	var install bool
	err := huh.NewConfirm().
		Title("ffmpeg not found").
		Description("ffmpeg and ffprobe are required to measure, stretch and mix audio. Install now?").
		Affirmative("Yes").
		Negative("No").
		Value(&install).
		Run()
	if err != nil {
		return err
	}

	if !install {
		return fmt.Errorf("ffmpeg is required - install from https://ffmpeg.org/download.html")
	}

	return runWithSpinner("Installing ffmpeg", func() error {
		switch runtime.GOOS {
		case "darwin":
			return runSetupCmd("brew", "install", "ffmpeg")
		case "linux":
			if commandExists("apt-get") {
				return runSetupCmd("sudo", "apt-get", "install", "-y", "ffmpeg")
			}
			return fmt.Errorf("no supported package manager, install ffmpeg manually")
		default:
			return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
		}
	})
}

func createDirectories() error {
	dirs := []string{"output", ".work"}
	if cfg, err := config.Load(context.Background(), config.Options{Path: configPath}); err == nil {
		dirs = []string{cfg.Output.Dir, cfg.Output.WorkDir}
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

// configureEnv merges answers into .env. Values already present are offered
// as defaults and keys the wizard does not ask about are kept.
func configureEnv() error {
	env, err := godotenv.Read(envFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", envFile, err)
		}
		env = make(map[string]string)
	} else {
		fmt.Println(infoStyle.Render(fmt.Sprintf("Updating existing %s (%d keys)", envFile, len(env))))
	}

	for _, configure := range []func(map[string]string) error{configureSpeech, configureLLM, configureGCP} {
		if err := configure(env); err != nil {
			return err
		}
	}

	for key, value := range env {
		if value == "" {
			delete(env, key)
		}
	}
	if err := godotenv.Write(env, envFile); err != nil {
		return fmt.Errorf("write %s: %w", envFile, err)
	}

	fmt.Println(successStyle.Render("✓ Wrote " + envFile))
	printNextSteps()
	return nil
}

func configureSpeech(env map[string]string) error {
	apiKey := env["ELEVENLABS_API_KEYS"]
	voiceID := env["ELEVENLABS_VOICE_ID"]

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("ElevenLabs API Key").
				Description("https://elevenlabs.io/app/settings/api-keys (comma separated for rotation)").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(required("ElevenLabs API Key")),
			huh.NewInput().
				Title("ElevenLabs Voice ID").
				Description("https://elevenlabs.io/app/voice-library").
				Value(&voiceID).
				Validate(required("Voice ID")),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["ELEVENLABS_API_KEYS"] = strings.TrimSpace(apiKey)
	env["ELEVENLABS_VOICE_ID"] = strings.TrimSpace(voiceID)
	return nil
}

func configureLLM(env map[string]string) error {
	provider := env["LLM_PROVIDER"]
	if err := huh.NewSelect[string]().
		Title("Language model for audio tags and shortening").
		Options(
			huh.NewOption("OpenAI (or any OpenAI-compatible endpoint)", config.ProviderOpenAI),
			huh.NewOption("Groq", config.ProviderGroq),
			huh.NewOption("None (no tags, no shortening)", config.ProviderNone),
		).
		Value(&provider).
		Run(); err != nil {
		return err
	}

	var keyVar, keyURL string
	switch provider {
	case config.ProviderOpenAI:
		keyVar, keyURL = "OPENAI_API_KEY", "https://platform.openai.com/api-keys"
	case config.ProviderGroq:
		keyVar, keyURL = "GROQ_API_KEY", "https://console.groq.com/keys"
	default:
		env["LLM_PROVIDER"] = config.ProviderNone
		return nil
	}

	apiKey := env[keyVar]
	baseURL := env["LLM_BASE_URL"]
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Key").
				Description(keyURL).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(required("API Key")),
			huh.NewInput().
				Title("Base URL (optional)").
				Placeholder("leave empty for the provider default").
				Value(&baseURL),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["LLM_PROVIDER"] = provider
	env[keyVar] = strings.TrimSpace(apiKey)
	env["LLM_BASE_URL"] = strings.TrimSpace(baseURL)
	return nil
}

func configureGCP(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Optional: Secret Manager for API keys and Cloud Storage for publishing tracks").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	if !commandExists("gcloud") {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		return nil
	}

	project := env["GOOGLE_CLOUD_PROJECT"]
	if project == "" {
		project = getActiveProject()
	}
	if err := huh.NewInput().
		Title("Project ID").
		Value(&project).
		Validate(required("Project ID")).
		Run(); err != nil {
		return err
	}
	env["GOOGLE_CLOUD_PROJECT"] = strings.TrimSpace(project)

	if err := enableGCPAPIs(env["GOOGLE_CLOUD_PROJECT"]); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
	}

	bucket := env["GCS_BUCKET"]
	if err := huh.NewInput().
		Title("Cloud Storage bucket (optional)").
		Description("Tracks and reports are uploaded here when set").
		Value(&bucket).
		Run(); err != nil {
		return err
	}
	env["GCS_BUCKET"] = strings.TrimSpace(bucket)

	return nil
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"secretmanager.googleapis.com",
		"storage.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Review config.yaml (margins, retries, estimator)")
	fmt.Println("  2. Run: srtvoice synth subtitles.srt")
	fmt.Println("  3. Inspect: srtvoice report output/subtitles.json")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
