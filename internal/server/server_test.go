package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/limaJavier/seating/pkg/milp"
	"github.com/limaJavier/seating/pkg/model"
	"github.com/rs/zerolog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const scenarioA = `{
	"rows": 5,
	"columns": 5,
	"seats": ["11101", "11101", "11101", "00000", "11111"],
	"groups": [1, 2, 4, 2, 1, 0, 1, 3]
}`

type stubSolver struct {
	solution *milp.Solution
	err      error
	limits   milp.Limits
}

func (solver *stubSolver) Solve(ctx context.Context, model *milp.Model, limits milp.Limits) (*milp.Solution, error) {
	solver.limits = limits
	return solver.solution, solver.err
}

func newServer(solver milp.Solver) *Server {
	return New(Options{
		Solver:       solver,
		Formulation:  model.BigM,
		MaxTimeLimit: time.Minute,
		Logger:       zerolog.Nop(),
	})
}

func post(server *Server, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, "/v1/plans", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](recorder *httptest.ResponseRecorder) T {
	var value T
	Expect(json.Unmarshal(recorder.Body.Bytes(), &value)).To(Succeed())
	return value
}

var _ = Describe("Health", func() {
	It("should answer ok", func() {
		recorder := httptest.NewRecorder()
		newServer(milp.NewGiniSolver()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(recorder.Body.String()).To(Equal("ok"))
	})
})

var _ = Describe("Plans", func() {
	Context("with the gini solver", func() {
		var server *Server

		BeforeEach(func() {
			server = newServer(milp.NewGiniSolver())
		})

		It("should seat the optimum of a valid instance", func() {
			recorder := post(server, scenarioA)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			response := decode[planResponse](recorder)
			Expect(uuid.Validate(response.ID)).To(Succeed())
			Expect(response.Report.Status).To(Equal(milp.Optimal.String()))
			Expect(response.Report.SeatedPeople).To(Equal(12))
			Expect(response.Report.Chart).To(HaveLen(5))
			Expect(response.Report.Classes).To(HaveLen(model.MaxGroupSize))
			Expect(response.Report.UsableSeats).To(Equal(17))
		})

		It("should assign a different id to every plan", func() {
			first := decode[planResponse](post(server, scenarioA))
			second := decode[planResponse](post(server, scenarioA))

			Expect(first.ID).NotTo(Equal(second.ID))
		})

		It("should reject a malformed body", func() {
			recorder := post(server, `{"rows": "five"`)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(decode[errorResponse](recorder).Error).To(Equal("invalid request body"))
		})

		It("should reject an invalid layout", func() {
			recorder := post(server, `{"rows": 2, "columns": 3, "seats": ["111", "11"], "groups": [1, 0, 0, 0, 0, 0, 0, 0]}`)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			response := decode[errorResponse](recorder)
			Expect(response.Error).To(Equal("invalid layout"))
			Expect(response.Detail).To(ContainSubstring("row 2 has length 2, expected 3"))
		})

		It("should reject an invalid demand", func() {
			recorder := post(server, `{"rows": 1, "columns": 3, "seats": ["111"], "groups": [1, 2]}`)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(decode[errorResponse](recorder).Error).To(Equal("invalid demand"))
		})

		It("should reject negative limits", func() {
			recorder := post(server, `{"rows": 1, "columns": 3, "seats": ["111"], "groups": [1, 0, 0, 0, 0, 0, 0, 0], "max_gap": -1}`)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("with a stub solver", func() {
		It("should report an infeasible program", func() {
			recorder := post(newServer(&stubSolver{solution: &milp.Solution{Status: milp.Infeasible}}), scenarioA)

			Expect(recorder.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("should report an unavailable solver", func() {
			recorder := post(newServer(milp.NewCbcSolver("/nonexistent/seating-cbc")), scenarioA)

			Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(decode[errorResponse](recorder).Error).To(Equal("solver unavailable"))
		})

		It("should hide unexpected errors", func() {
			recorder := post(newServer(&stubSolver{err: errors.New("boom")}), scenarioA)

			Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
			Expect(recorder.Body.String()).NotTo(ContainSubstring("boom"))
		})

		It("should clamp the requested time limit", func() {
			solver := &stubSolver{solution: &milp.Solution{Status: milp.Interrupted}}
			body := strings.Replace(scenarioA, `"rows": 5,`, `"rows": 5, "time_limit_seconds": 3600, "max_gap": 0.25,`, 1)

			recorder := post(newServer(solver), body)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(solver.limits).To(Equal(milp.Limits{TimeLimit: time.Minute, MaxGap: 0.25}))
			Expect(decode[planResponse](recorder).Report.SeatedPeople).To(BeZero())
		})

		It("should clamp a time limit too large for a duration", func() {
			solver := &stubSolver{solution: &milp.Solution{Status: milp.Interrupted}}
			body := strings.Replace(scenarioA, `"rows": 5,`, `"rows": 5, "time_limit_seconds": 1e12,`, 1)

			recorder := post(newServer(solver), body)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(solver.limits.TimeLimit).To(Equal(time.Minute))
		})

		It("should saturate a huge time limit without a maximum", func() {
			solver := &stubSolver{solution: &milp.Solution{Status: milp.Interrupted}}
			server := New(Options{Solver: solver, Formulation: model.BigM, Logger: zerolog.Nop()})
			body := strings.Replace(scenarioA, `"rows": 5,`, `"rows": 5, "time_limit_seconds": 1e12,`, 1)

			recorder := post(server, body)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(solver.limits.TimeLimit).To(Equal(time.Duration(math.MaxInt64)))
		})
	})
})

var _ = Describe("Start", func() {
	It("should shut down when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		go func() {
			errs <- newServer(milp.NewGiniSolver()).Start(ctx, "127.0.0.1:0")
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		Eventually(errs, 15*time.Second).Should(Receive(BeNil()))
	})
})
