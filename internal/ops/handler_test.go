package ops_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience-gate/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience-gate/internal/ops"
)

var _ = Describe("Handler", func() {
	var (
		registry *circuitbreaker.Registry
		handler  *ops.Handler
		mux      *http.ServeMux
	)

	trip := func(service string) {
		cb, err := registry.GetOrCreate(service, nil)
		Expect(err).NotTo(HaveOccurred())
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return errors.New("connection refused")
		})
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
	}

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(circuitbreaker.Config{
			FailureThreshold: 1,
			SuccessThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxCalls: 1,
		})

		log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		handler = ops.NewHandler(log, registry)

		mux = http.NewServeMux()
		mux.HandleFunc("GET /status", handler.Statuses)
		mux.HandleFunc("GET /status/{service}", handler.ServiceStatus)
		mux.HandleFunc("POST /reset/{service}", handler.ResetService)
	})

	Describe("GET /status", func() {
		It("should return every breaker keyed by service", func() {
			trip("payment-service")
			_, err := registry.GetOrCreate("user-service", nil)
			Expect(err).NotTo(HaveOccurred())

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var statuses map[string]circuitbreaker.Status
			Expect(json.Unmarshal(rec.Body.Bytes(), &statuses)).To(Succeed())
			Expect(statuses).To(HaveLen(2))
			Expect(statuses["payment-service"].Service).To(Equal("payment-service"))
		})

		It("should return an empty object with no breakers", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON("{}"))
		})
	})

	Describe("GET /status/{service}", func() {
		It("should return the breaker snapshot", func() {
			trip("payment-service")

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", "/status/payment-service", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"state":"OPEN"`))
		})

		It("should 404 for an unknown service", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", "/status/nope", nil))

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /reset/{service}", func() {
		It("should force the breaker closed", func() {
			trip("payment-service")

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("POST", "/reset/payment-service", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"state":"CLOSED"`))

			cb, _ := registry.Get("payment-service")
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should 404 for an unknown service", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("POST", "/reset/nope", nil))

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})
})
