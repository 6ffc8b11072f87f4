package server

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"mumbai-meal-planner/internal/app"
	"mumbai-meal-planner/internal/images"
	"mumbai-meal-planner/internal/llm"
	"mumbai-meal-planner/internal/menu"
	"mumbai-meal-planner/internal/metrics"
	"mumbai-meal-planner/internal/planner"
)

//go:embed static
var staticFS embed.FS

// UsageReader reports aggregated call metrics for the status endpoint.
type UsageReader interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

// Server exposes the planner over HTTP: a JSON API plus the embedded
// single-page UI.
type Server struct {
	app     *app.App
	usage   UsageReader
	dataDir string
	mux     *http.ServeMux
}

// New wires up all routes. usage may be nil when metrics are disabled.
func New(a *app.App, usage UsageReader, dataDir string) *Server {
	s := &Server{app: a, usage: usage, dataDir: dataDir, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/window", s.handleWindow)
	s.mux.HandleFunc("GET /api/menu/{date}", s.handleGetMenu)
	s.mux.HandleFunc("POST /api/menu/{date}/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/menu/{date}/feedback", s.handleFeedback)
	s.mux.HandleFunc("POST /api/menu/{date}/swap", s.handleSwap)
	s.mux.HandleFunc("GET /api/prefs", s.handleGetPrefs)
	s.mux.HandleFunc("POST /api/prefs/dislikes", s.handleAddDislike)
	s.mux.HandleFunc("DELETE /api/prefs/dislikes", s.handleRemoveDislike)
	s.mux.HandleFunc("GET /api/image", s.handleImage)
	s.mux.HandleFunc("GET /api/narration/{date}", s.handleNarration)
	s.mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	s.mux.Handle("GET /", http.FileServer(http.FS(mustSub())))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// mealView is a menu entry with render-time defaults applied and the dish
// image URL attached.
type mealView struct {
	Dish     string `json:"dish"`
	Desc     string `json:"desc"`
	Calories string `json:"calories"`
	ImageURL string `json:"image_url"`
}

type menuView struct {
	Date        string   `json:"date"`
	Breakfast   mealView `json:"breakfast"`
	Lunch       mealView `json:"lunch"`
	Dinner      mealView `json:"dinner"`
	Message     string   `json:"message,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Learned     []string `json:"learned,omitempty"`
}

func viewOf(date string, dm menu.DayMenu) menuView {
	return menuView{
		Date:        date,
		Breakfast:   mealViewOf(dm.Breakfast),
		Lunch:       mealViewOf(dm.Lunch),
		Dinner:      mealViewOf(dm.Dinner),
		Message:     dm.Message,
		Ingredients: dm.Ingredients,
	}
}

func mealViewOf(e menu.MealEntry) mealView {
	r := e.Rendered()
	return mealView{Dish: r.Dish, Desc: r.Desc, Calories: r.Calories, ImageURL: images.URL(r.Dish)}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "today": s.app.Today()})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Window())
}

func (s *Server) handleGetMenu(w http.ResponseWriter, r *http.Request) {
	date, ok := datePath(w, r)
	if !ok {
		return
	}
	dm, found := s.app.Menu(date)
	if !found {
		writeError(w, http.StatusNotFound, "no menu for this date yet")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(date, dm))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	date, ok := datePath(w, r)
	if !ok {
		return
	}
	dm, err := s.app.GenerateDay(r.Context(), date)
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(date, dm))
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	date, ok := datePath(w, r)
	if !ok {
		return
	}
	var body struct {
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Feedback) == "" {
		writeError(w, http.StatusBadRequest, "feedback text is required")
		return
	}
	dm, learned, err := s.app.ApplyFeedback(r.Context(), date, body.Feedback)
	if err != nil {
		writePlannerError(w, err)
		return
	}
	view := viewOf(date, dm)
	view.Learned = learned
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	date, ok := datePath(w, r)
	if !ok {
		return
	}
	var body struct {
		Slot string `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}
	slot, err := menu.ParseSlot(body.Slot)
	if err != nil {
		writeError(w, http.StatusBadRequest, "slot must be breakfast, lunch or dinner")
		return
	}
	dm, err := s.app.SwapMeal(r.Context(), date, slot)
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(date, dm))
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Preferences())
}

func (s *Server) handleAddDislike(w http.ResponseWriter, r *http.Request) {
	item, ok := dislikeBody(w, r)
	if !ok {
		return
	}
	if _, err := s.app.AddDislike(item); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, s.app.Preferences())
}

func (s *Server) handleRemoveDislike(w http.ResponseWriter, r *http.Request) {
	item, ok := dislikeBody(w, r)
	if !ok {
		return
	}
	if _, err := s.app.RemoveDislike(item); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, s.app.Preferences())
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	dish := r.URL.Query().Get("dish")
	if strings.TrimSpace(dish) == "" {
		writeError(w, http.StatusBadRequest, "dish query parameter is required")
		return
	}
	img := s.app.DishImage(r.Context(), dish)
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(img.Data)
}

func (s *Server) handleNarration(w http.ResponseWriter, r *http.Request) {
	date, ok := datePath(w, r)
	if !ok {
		return
	}
	file, err := s.app.Narrate(r.Context(), date)
	if err != nil {
		writePlannerError(w, err)
		return
	}
	if file == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.ServeFile(w, r, file)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	report := map[string]any{"sys": metrics.GetSysHealth(s.dataDir)}
	if s.usage != nil {
		usage, err := s.usage.GetDailyUsage(7)
		if err != nil {
			log.Printf("Failed to read daily usage: %v", err)
		} else {
			report["daily_usage"] = usage
		}
	}
	writeJSON(w, http.StatusOK, report)
}

func datePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.PathValue("date")
	if _, err := time.Parse(menu.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return "", false
	}
	return date, true
}

func dislikeBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Item string `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Item) == "" {
		writeError(w, http.StatusBadRequest, "item is required")
		return "", false
	}
	return body.Item, true
}

func writePlannerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrNoMenuForDate):
		writeError(w, http.StatusNotFound, "no menu for this date yet")
	case errors.Is(err, llm.ErrNoCompletion):
		writeError(w, http.StatusBadGateway, "all models are busy, please retry")
	default:
		log.Printf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "something went wrong, please retry")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func mustSub() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
