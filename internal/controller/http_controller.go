package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jt828/wolam/internal/interceptor"
	"github.com/jt828/wolam/internal/metrics"
	"github.com/jt828/wolam/internal/service"
	"github.com/jt828/wolam/pkg/observability"
	"github.com/jt828/wolam/pkg/snowflake"
	"github.com/jt828/wolam/web"
)

const defaultMetricCount = "25"

type HTTPControllerConfig struct {
	ApplicationName    string
	DefaultEnvironment string
	DefaultRegion      string
}

type HTTPController struct {
	cfg            HTTPControllerConfig
	logService     service.LogService
	metricsService service.MetricsService
	registry       *metrics.Registry
	pages          *web.Pages
	snowflake      snowflake.Snowflake
	log            observability.Logger
	tracer         observability.Tracer
}

func NewHTTPController(
	cfg HTTPControllerConfig,
	logService service.LogService,
	metricsService service.MetricsService,
	registry *metrics.Registry,
	pages *web.Pages,
	snowflake snowflake.Snowflake,
	log observability.Logger,
	tracer observability.Tracer,
) *HTTPController {
	return &HTTPController{
		cfg:            cfg,
		logService:     logService,
		metricsService: metricsService,
		registry:       registry,
		pages:          pages,
		snowflake:      snowflake,
		log:            log,
		tracer:         tracer,
	}
}

// Handler routes the application endpoints. Unknown paths render the 404
// page and panics render the 500 page.
func (ctrl *HTTPController) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(ctrl.instrument)

	r.HandleFunc("/", ctrl.index).Methods(http.MethodGet)
	r.HandleFunc("/logit", ctrl.logit).Methods(http.MethodPost)
	r.HandleFunc("/setLogLevel", ctrl.setLogLevel).Methods(http.MethodPost)
	r.HandleFunc("/health", ctrl.health).Methods(http.MethodGet)
	r.HandleFunc("/createMetrics", ctrl.createMetrics).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{id}", ctrl.getJob).Methods(http.MethodGet)
	r.HandleFunc("/log", ctrl.logPage).Methods(http.MethodGet)
	r.HandleFunc("/monitor", ctrl.monitorPage).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(ctrl.handler404)

	return interceptor.Recover(ctrl.log, http.HandlerFunc(ctrl.handler500))(r)
}

func (ctrl *HTTPController) index(w http.ResponseWriter, r *http.Request) {
	ctrl.countAPICall(r, "/")
	ctrl.render(w, http.StatusOK, web.PageIndex, web.PageData{})
}

func (ctrl *HTTPController) logit(w http.ResponseWriter, r *http.Request) {
	ctrl.countAPICall(r, "/logit")

	message := formValue(r, "message", "")
	ctrl.logService.Logit(r.Context(), message, formValue(r, "level", ""))

	writeJSON(w, http.StatusOK, map[string]string{"smsg": message})
}

func (ctrl *HTTPController) setLogLevel(w http.ResponseWriter, r *http.Request) {
	ctrl.countAPICall(r, "/setLogLevel")

	level := formValue(r, "loggerlevel", "")
	ctrl.logService.SetLogLevel(r.Context(), level)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("New log level set to " + level))
}

func (ctrl *HTTPController) health(w http.ResponseWriter, r *http.Request) {
	ctrl.countAPICall(r, "/health")
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// createMetrics counts its own api call inside the metrics service, where
// the label values are validated together with the unit count.
func (ctrl *HTTPController) createMetrics(w http.ResponseWriter, r *http.Request) {
	params := service.GenerateParams{
		MetricCount: formValue(r, "metriccount", defaultMetricCount),
		Environment: formValue(r, "environment", ctrl.cfg.DefaultEnvironment),
		Region:      formValue(r, "region", ctrl.cfg.DefaultRegion),
	}

	res, err := ctrl.metricsService.Create(r.Context(), service.CreateMetricsRequest{
		Params:        params,
		Async:         formValue(r, "async", ""),
		IdempotencyId: formValue(r, "idempotency_id", ""),
	})
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}

	if res.Job == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "Metrics Generated " + params.MetricCount})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "Metrics Generation Scheduled " + params.MetricCount,
		"job_id": ctrl.snowflake.Format(res.Job.Id),
	})
}

func (ctrl *HTTPController) getJob(w http.ResponseWriter, r *http.Request) {
	ctrl.countAPICall(r, "/jobs/{id}")

	id, err := ctrl.snowflake.Parse(mux.Vars(r)["id"])
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}

	job, err := ctrl.metricsService.GetJob(r.Context(), id)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (ctrl *HTTPController) logPage(w http.ResponseWriter, r *http.Request) {
	ctrl.countAPICall(r, "/log")
	ctrl.render(w, http.StatusOK, web.PageLog, web.PageData{LogPage: "active"})
}

func (ctrl *HTTPController) monitorPage(w http.ResponseWriter, r *http.Request) {
	ctrl.countAPICall(r, "/monitor")
	ctrl.render(w, http.StatusOK, web.PageMonitor, web.PageData{MonitorPage: "active"})
}

func (ctrl *HTTPController) handler404(w http.ResponseWriter, r *http.Request) {
	ctrl.render(w, http.StatusNotFound, web.PageNotFound, web.PageData{})
}

func (ctrl *HTTPController) handler500(w http.ResponseWriter, r *http.Request) {
	ctrl.render(w, http.StatusInternalServerError, web.PageError, web.PageData{})
}

// countAPICall records the call on the api counter. A rejected label set is
// logged and does not fail the request.
func (ctrl *HTTPController) countAPICall(r *http.Request, endpoint string) {
	err := ctrl.registry.RecordAPICall(metrics.APICall{
		Method:      strings.ToLower(r.Method),
		Endpoint:    endpoint,
		Environment: formValue(r, "environment", ctrl.cfg.DefaultEnvironment),
		Region:      formValue(r, "region", ctrl.cfg.DefaultRegion),
	})
	if err != nil {
		ctrl.log.Warn("api call not counted", observability.Err(err), observability.String("endpoint", endpoint))
	}
}

func (ctrl *HTTPController) render(w http.ResponseWriter, status int, page web.Page, data web.PageData) {
	data.ApplicationName = ctrl.cfg.ApplicationName
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := ctrl.pages.Render(w, page, data); err != nil {
		ctrl.log.Error("failed to render page", observability.Err(err), observability.String("page", string(page)))
	}
}

func (ctrl *HTTPController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := interceptor.HTTPError(ctrl.log, routeOf(r), err)
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// formValue returns the submitted value of key, or def when the key was not
// submitted at all. An empty submitted value is returned as is.
func formValue(r *http.Request, key, def string) string {
	if r.Form == nil {
		_ = r.ParseForm()
	}
	if values, ok := r.Form[key]; ok && len(values) > 0 {
		return values[0]
	}
	return def
}
