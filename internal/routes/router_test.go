package routes_test

import (
	"bytes"
	"context"
	"fmt"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"opsdash/internal/controllers"
	"opsdash/internal/models"
	"opsdash/internal/routes"
	"opsdash/internal/services"
	"opsdash/internal/views"
	"opsdash/pkg/logger"
	"opsdash/pkg/metrics"
	"opsdash/web"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2024, 1, 20, 10, 30, 0, 0, time.UTC)

type failingSampler struct{}

func (failingSampler) CPUPercent(context.Context) (float64, error)    { return 0, errors.New("no cpu") }
func (failingSampler) MemoryPercent(context.Context) (float64, error) { return 0, errors.New("no mem") }

type brokenDashboard struct{ *services.DashboardService }

func (brokenDashboard) Overview(context.Context) (*models.Overview, error) {
	return nil, errors.New("overview exploded")
}

func (brokenDashboard) MetricsReport(context.Context) (*models.MetricsReport, error) {
	return nil, errors.New("metrics exploded")
}

func (brokenDashboard) History(context.Context) (*models.HistoryReport, error) {
	return nil, errors.New("history exploded")
}

func (brokenDashboard) Settings(context.Context) (*models.SettingsReport, error) {
	panic("settings exploded")
}

type panickingUsage struct{}

func (panickingUsage) Usage(context.Context) models.Usage { panic("usage exploded") }

// lockedBuffer is written by server goroutines while the test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type brokenRenderer struct{}

func (brokenRenderer) Render(io.Writer, string, any) error { return errors.New("template exploded") }

type harness struct {
	build   string
	sampler services.Sampler
	broken  bool
	pages   interface {
		Render(io.Writer, string, any) error
	}
	metrics *metrics.Manager
	usage   controllers.UsageReader
	log     logger.Logger
}

func (h harness) engine() *gin.Engine {
	if h.sampler == nil {
		h.sampler = services.MockSampler{CPU: 45, Memory: 62}
	}
	if h.pages == nil {
		r, err := views.NewRenderer(web.Templates())
		So(err, ShouldBeNil)
		h.pages = r
	}

	var recorder services.FailureRecorder
	if h.metrics != nil {
		recorder = h.metrics
	}
	usage := services.NewMetricsService(h.sampler, recorder, logger.Nop())
	dashboard := services.NewDashboardService(h.build, usage, func() time.Time { return fixedNow })

	deps := routes.Deps{
		Dashboard:      dashboard,
		Usage:          usage,
		Pages:          h.pages,
		Auth:           services.NewAuthService("admin", "s3cret"),
		Static:         http.FS(web.Static()),
		Metrics:        h.metrics,
		Log:            logger.Nop(),
		StreamInterval: 20 * time.Millisecond,
		Now:            func() time.Time { return fixedNow },
	}
	if h.broken {
		deps.Dashboard = brokenDashboard{dashboard}
	}
	if h.usage != nil {
		deps.Usage = h.usage
	}
	if h.log != nil {
		deps.Log = h.log
	}
	return routes.Setup(deps)
}

func do(e *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func get(e *gin.Engine, path string) *httptest.ResponseRecorder {
	return do(e, httptest.NewRequest(http.MethodGet, path, nil))
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestDashboardRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Given a dashboard with build 128", t, func() {
		e := harness{build: "128"}.engine()

		Convey("/health reports healthy with the build as version", func() {
			w := get(e, "/health")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["status"], ShouldEqual, "healthy")
			So(body["version"], ShouldEqual, "128")
			So(body["timestamp"], ShouldEqual, "2024-01-20T10:30:00Z")
		})

		Convey("/ renders build, server time, usage and logs", func() {
			w := get(e, "/")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
			html := w.Body.String()
			So(html, ShouldContainSubstring, "128")
			So(html, ShouldContainSubstring, "2024-01-20 10:30:00")
			So(html, ShouldContainSubstring, "45%")
			So(html, ShouldContainSubstring, "62%")
			So(html, ShouldContainSubstring, services.RecentLogs()[0].Message)
		})

		Convey("/history lists the entries newest first", func() {
			w := get(e, "/history")
			So(w.Code, ShouldEqual, http.StatusOK)
			html := w.Body.String()
			first := strings.Index(html, "2024-01-20")
			second := strings.Index(html, "2024-01-19")
			third := strings.Index(html, "2024-01-18")
			So(first, ShouldBeGreaterThan, -1)
			So(second, ShouldBeGreaterThan, first)
			So(third, ShouldBeGreaterThan, second)
			So(html, ShouldContainSubstring, "Failed")
		})

		Convey("/metrics and /settings render", func() {
			So(get(e, "/metrics").Code, ShouldEqual, http.StatusOK)
			w := get(e, "/settings")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "dark")
		})

		Convey("static assets are served", func() {
			w := get(e, "/static/style.css")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("responses carry a request id", func() {
			w := get(e, "/health")
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("X-Request-ID", "abc-123")
			So(do(e, req).Header().Get("X-Request-ID"), ShouldEqual, "abc-123")
		})

		Convey("unknown paths are 404", func() {
			So(get(e, "/nope").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given the default build number the page shows it", t, func() {
		e := harness{build: "Development"}.engine()
		w := get(e, "/")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldContainSubstring, "Development")
	})

	Convey("Given a sampler that always fails", t, func() {
		e := harness{build: "1", sampler: failingSampler{}}.engine()

		Convey("pages still render with zero usage", func() {
			w := get(e, "/")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `cpu-usage">0%`)
			So(w.Body.String(), ShouldContainSubstring, `memory-usage">0%`)
		})
	})
}

func TestMetricsAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Given the metrics API", t, func() {
		e := harness{build: "7"}.engine()

		request := func(user, pass string, withAuth bool) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
			if withAuth {
				req.SetBasicAuth(user, pass)
			}
			return do(e, req)
		}

		Convey("missing credentials are rejected", func() {
			w := request("", "", false)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(w.Body.String(), ShouldEqual, `{"error":"Unauthorized access"}`)
			So(w.Header().Get("WWW-Authenticate"), ShouldContainSubstring, "Basic")
		})

		Convey("wrong credentials get the same body", func() {
			w := request("admin", "wrong", true)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(w.Body.String(), ShouldEqual, `{"error":"Unauthorized access"}`)
		})

		Convey("correct credentials get the usage", func() {
			w := request("admin", "s3cret", true)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["success"], ShouldEqual, true)
			So(body["timestamp"], ShouldEqual, "2024-01-20T10:30:00Z")
			data := body["data"].(map[string]any)
			So(data["cpu_usage"], ShouldEqual, float64(45))
			So(data["memory_usage"], ShouldEqual, float64(62))
		})
	})

	Convey("Given a sampler that always fails", t, func() {
		e := harness{build: "7", sampler: failingSampler{}}.engine()
		req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
		req.SetBasicAuth("admin", "s3cret")
		w := do(e, req)

		So(w.Code, ShouldEqual, http.StatusOK)
		body := decode(w)
		So(body["success"], ShouldEqual, true)
		So(body["data"], ShouldResemble, map[string]any{"cpu_usage": float64(0), "memory_usage": float64(0)})
	})

	Convey("Given an out of range sampler", t, func() {
		e := harness{build: "7", sampler: services.MockSampler{CPU: 180, Memory: -4}}.engine()
		req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
		req.SetBasicAuth("admin", "s3cret")
		data := decode(do(e, req))["data"].(map[string]any)
		So(data["cpu_usage"], ShouldEqual, float64(100))
		So(data["memory_usage"], ShouldEqual, float64(0))
	})
}

func TestInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Given a dashboard whose data assembly fails", t, func() {
		e := harness{build: "9", broken: true}.engine()

		Convey("/api/metrics answers a JSON 500", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
			req.SetBasicAuth("admin", "s3cret")
			w := do(e, req)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			body := decode(w)
			So(body["success"], ShouldEqual, false)
			So(body["error"], ShouldNotBeEmpty)
		})

		Convey("auth is still checked first", func() {
			So(get(e, "/api/metrics").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("/ renders the error page", func() {
			w := get(e, "/")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
			So(w.Body.String(), ShouldNotContainSubstring, "overview exploded")
		})

		Convey("/metrics and /history answer plain text", func() {
			for _, path := range []string{"/metrics", "/history"} {
				w := get(e, path)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/plain")
			}
		})

		Convey("a panic in /settings is recovered as plain text", func() {
			w := get(e, "/settings")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/plain")
		})

		Convey("/health is unaffected", func() {
			So(get(e, "/health").Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Given templates that fail to render", t, func() {
		e := harness{build: "9", pages: brokenRenderer{}}.engine()

		Convey("/ falls back to plain text", func() {
			w := get(e, "/")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/plain")
		})

		Convey("/settings answers plain text", func() {
			w := get(e, "/settings")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldEqual, "Internal Server Error")
		})
	})
}

func TestPrometheusEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Given metrics enabled", t, func() {
		e := harness{build: "3", metrics: metrics.NewManager()}.engine()
		get(e, "/health")
		get(e, "/api/metrics")

		w := get(e, "/prometheus")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldContainSubstring, "opsdash_http_requests_total")
		So(w.Body.String(), ShouldContainSubstring, "opsdash_auth_failures_total 1")
	})

	Convey("Given a client requesting many unknown paths", t, func() {
		e := harness{build: "3", metrics: metrics.NewManager()}.engine()
		for i := 0; i < 50; i++ {
			So(get(e, fmt.Sprintf("/scan/%d", i)).Code, ShouldEqual, http.StatusNotFound)
		}

		body := get(e, "/prometheus").Body.String()
		So(body, ShouldNotContainSubstring, `route="/scan/`)
		So(body, ShouldContainSubstring,
			`opsdash_http_requests_total{method="GET",route="unmatched",status_code="404"} 50`)
	})

	Convey("Given metrics disabled", t, func() {
		e := harness{build: "3"}.engine()
		So(get(e, "/prometheus").Code, ShouldEqual, http.StatusNotFound)
	})
}

func TestMetricsStream(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Given a running server", t, func() {
		srv := httptest.NewServer(harness{build: "5"}.engine())
		defer srv.Close()
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/metrics"

		Convey("an unauthenticated dial is refused with 401", func() {
			_, resp, err := websocket.DefaultDialer.Dial(url, nil)
			So(err, ShouldNotBeNil)
			So(resp, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
			resp.Body.Close()
		})

		Convey("an authenticated client receives usage frames", func() {
			header := http.Header{}
			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			req.SetBasicAuth("admin", "s3cret")
			header.Set("Authorization", req.Header.Get("Authorization"))

			conn, _, err := websocket.DefaultDialer.Dial(url, header)
			So(err, ShouldBeNil)
			defer conn.Close()

			for i := 0; i < 2; i++ {
				var msg models.StreamMessage
				So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
				So(conn.ReadJSON(&msg), ShouldBeNil)
				So(msg.Type, ShouldEqual, "metrics")
				So(msg.Data, ShouldResemble, models.Usage{CPUUsage: 45, MemoryUsage: 62})
			}
		})
	})
}

func TestMetricsStreamPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Given a stream whose usage reader panics", t, func() {
		out := &lockedBuffer{}
		log, _, err := logger.New(logger.Options{Level: "error", Output: out})
		So(err, ShouldBeNil)

		srv := httptest.NewServer(harness{build: "5", usage: panickingUsage{}, log: log}.engine())
		defer srv.Close()
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/metrics"

		header := http.Header{}
		header.Set("Authorization", "Basic YWRtaW46czNjcmV0")
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		So(err, ShouldBeNil)
		defer conn.Close()

		var msg models.StreamMessage
		So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
		So(conn.ReadJSON(&msg), ShouldNotBeNil)

		Convey("the panic is logged with the route", func() {
			deadline := time.Now().Add(2 * time.Second)
			for !strings.Contains(out.String(), "handler panicked") && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			So(out.String(), ShouldContainSubstring, "handler panicked")
			So(out.String(), ShouldContainSubstring, "route=/ws/metrics")
		})

		Convey("the server keeps serving", func() {
			resp, err := http.Get(srv.URL + "/health")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
