package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/types"
	"github.com/BaSui01/tuneflow/tuning"
)

// DefaultLookbackDays 是 sensitivity 查询未指定窗口时的默认天数
const DefaultLookbackDays = 30

// TuningService 是 TuningHandler 依赖的服务接口，由 *tuning.Service 实现
type TuningService interface {
	Adjust(ctx context.Context, req *tuning.AdjustRequest) (*tuning.AdjustmentResult, error)
	AdjustAll(ctx context.Context, req *tuning.AdjustAllRequest) (*tuning.AdjustmentResult, error)
	SelectStrategy(ctx context.Context, req *tuning.SelectRequest) (*tuning.Selection, error)
	Sensitivity(ctx context.Context, req *tuning.SensitivityRequest) (*tuning.SensitivityReport, error)
	Evaluate(ctx context.Context, req *tuning.FeedbackRequest) (*tuning.FeedbackResult, error)
	RunCycle(ctx context.Context, req *tuning.CycleRequest) (*tuning.CycleResult, error)
	ListParameters(ctx context.Context) ([]*tuning.Parameter, error)
	GetParameter(ctx context.Context, name string) (*tuning.Parameter, error)
	ListStrategies(ctx context.Context) ([]*tuning.Strategy, error)
	RecordPerformance(ctx context.Context, req *tuning.RecordPerformanceRequest) (*tuning.PerformanceSample, error)
	RecordAgentFeedback(ctx context.Context, req *tuning.RecordAgentFeedbackRequest) (*tuning.AgentFeedback, error)
}

// =============================================================================
// 🎛️ Tuning Handler
// =============================================================================

// TuningHandler 暴露参数调整、策略选择、敏感度与反馈评估接口
type TuningHandler struct {
	service TuningService
	logger  *zap.Logger
}

// NewTuningHandler 创建 TuningHandler
func NewTuningHandler(service TuningService, logger *zap.Logger) *TuningHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TuningHandler{
		service: service,
		logger:  logger.With(zap.String("handler", "tuning")),
	}
}

// Register 在 mux 上注册 /api/v1/tuning 路由
func (h *TuningHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/tuning/adjust", h.HandleAdjust)
	mux.HandleFunc("POST /api/v1/tuning/adjust-all", h.HandleAdjustAll)
	mux.HandleFunc("POST /api/v1/tuning/strategies/select", h.HandleSelectStrategy)
	mux.HandleFunc("GET /api/v1/tuning/strategies", h.HandleListStrategies)
	mux.HandleFunc("GET /api/v1/tuning/parameters", h.HandleListParameters)
	mux.HandleFunc("GET /api/v1/tuning/parameters/{name}", h.HandleGetParameter)
	mux.HandleFunc("GET /api/v1/tuning/sensitivity", h.HandleSensitivity)
	mux.HandleFunc("POST /api/v1/tuning/feedback", h.HandleEvaluate)
	mux.HandleFunc("POST /api/v1/tuning/performance", h.HandleRecordPerformance)
	mux.HandleFunc("POST /api/v1/tuning/agent-feedback", h.HandleRecordAgentFeedback)
	mux.HandleFunc("POST /api/v1/tuning/cycle", h.HandleCycle)
}

// HandleAdjust 调整某策略关联的参数
func (h *TuningHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	var req tuning.AdjustRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.Adjust(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleAdjustAll 调整整个参数目录
func (h *TuningHandler) HandleAdjustAll(w http.ResponseWriter, r *http.Request) {
	var req tuning.AdjustAllRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.AdjustAll(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleSelectStrategy 选出得分最高的活跃策略
func (h *TuningHandler) HandleSelectStrategy(w http.ResponseWriter, r *http.Request) {
	var req tuning.SelectRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.SelectStrategy(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleListStrategies 列出策略
func (h *TuningHandler) HandleListStrategies(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListStrategies(r.Context())
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleListParameters 列出参数
func (h *TuningHandler) HandleListParameters(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListParameters(r.Context())
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleGetParameter 返回单个参数及其调整历史
func (h *TuningHandler) HandleGetParameter(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetParameter(r.Context(), r.PathValue("name"))
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleSensitivity 按 lookback_days 查询参数敏感度
func (h *TuningHandler) HandleSensitivity(w http.ResponseWriter, r *http.Request) {
	req := tuning.SensitivityRequest{LookbackDays: DefaultLookbackDays}
	if raw := r.URL.Query().Get("lookback_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, r, types.NewValidationError("lookback_days must be an integer").WithCause(err), h.logger)
			return
		}
		req.LookbackDays = days
	}
	result, err := h.service.Sensitivity(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleEvaluate 评估性能分数并给出建议
func (h *TuningHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req tuning.FeedbackRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.Evaluate(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleRecordPerformance 记录一次基准样本
func (h *TuningHandler) HandleRecordPerformance(w http.ResponseWriter, r *http.Request) {
	var req tuning.RecordPerformanceRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.RecordPerformance(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusCreated, result, err)
}

// HandleRecordAgentFeedback 记录一条 agent 反馈
func (h *TuningHandler) HandleRecordAgentFeedback(w http.ResponseWriter, r *http.Request) {
	var req tuning.RecordAgentFeedbackRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.RecordAgentFeedback(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusCreated, result, err)
}

// HandleCycle 执行一次完整调优循环
func (h *TuningHandler) HandleCycle(w http.ResponseWriter, r *http.Request) {
	var req tuning.CycleRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.RunCycle(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// writeResult 把 (result, err) 写成统一响应
func writeResult(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, result any, err error) {
	if err != nil {
		WriteError(w, r, err, logger)
		return
	}
	WriteSuccessStatus(w, r, status, result)
}
