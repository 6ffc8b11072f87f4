package speech

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mumbai-meal-planner/internal/menu"

	htgotts "github.com/hegedustibor/htgo-tts"
	"github.com/hegedustibor/htgo-tts/voices"
)

// Synthesizer turns narration text into an audio file and returns its path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, name string) (string, error)
}

// Narration builds the spoken summary for a day's menu. The wording is
// deterministic so repeated requests reuse the same audio file.
func Narration(date string, dm menu.DayMenu) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is the plan for %s. ", date)
	fmt.Fprintf(&b, "For breakfast, %s. ", dm.Breakfast.Rendered().Dish)
	fmt.Fprintf(&b, "For lunch, %s. ", dm.Lunch.Rendered().Dish)
	fmt.Fprintf(&b, "And for dinner, %s.", dm.Dinner.Rendered().Dish)
	if msg := strings.TrimSpace(dm.Message); msg != "" {
		fmt.Fprintf(&b, " One more thing: %s", msg)
	}
	return b.String()
}

// TTS synthesizes narration with the Google translate voice via htgo-tts.
type TTS struct {
	speech htgotts.Speech
}

// NewTTS creates a synthesizer that writes MP3 files under audioDir.
func NewTTS(audioDir string) *TTS {
	return &TTS{speech: htgotts.Speech{Folder: audioDir, Language: voices.English}}
}

// Synthesize writes the narration to <audioDir>/<name>.mp3 and returns the
// file path.
func (t *TTS) Synthesize(_ context.Context, text, name string) (string, error) {
	file, err := t.speech.CreateSpeechFile(text, name)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize narration: %w", err)
	}
	return file, nil
}

// Quiet wraps a synthesizer so narration failures never surface to the
// caller: the error is logged and an empty path returned.
type Quiet struct {
	Next Synthesizer
}

func (q Quiet) Synthesize(ctx context.Context, text, name string) (string, error) {
	if q.Next == nil {
		return "", nil
	}
	file, err := q.Next.Synthesize(ctx, text, name)
	if err != nil {
		log.Printf("Narration unavailable: %v", err)
		return "", nil
	}
	return file, nil
}
