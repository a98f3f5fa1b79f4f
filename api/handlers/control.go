package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/balance"
	"github.com/BaSui01/tuneflow/control"
	"github.com/BaSui01/tuneflow/tuning"
)

// ControlService 是控制环与平衡审计接口，由 *tuning.Service 实现
type ControlService interface {
	Drive(ctx context.Context, req *tuning.DriveRequest) (*control.DriveResult, error)
	Bias(ctx context.Context, req *tuning.BiasRequest) (*control.BiasResult, error)
	Global(ctx context.Context, req *tuning.GlobalRequest) (*control.GlobalResult, error)
	Tick(ctx context.Context, req *tuning.TickRequest) (*control.TickResult, error)
	Audit(ctx context.Context, req *tuning.AuditRequest) (*balance.Report, error)
}

// =============================================================================
// 🧭 Control Handler
// =============================================================================

// ControlHandler 暴露 drive / bias / global / tick 与平衡审计
type ControlHandler struct {
	service ControlService
	logger  *zap.Logger
}

// NewControlHandler 创建 ControlHandler
func NewControlHandler(service ControlService, logger *zap.Logger) *ControlHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ControlHandler{
		service: service,
		logger:  logger.With(zap.String("handler", "control")),
	}
}

// Register 在 mux 上注册 /api/v1/control 与 /api/v1/balance 路由
func (h *ControlHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/control/drive", h.HandleDrive)
	mux.HandleFunc("POST /api/v1/control/bias", h.HandleBias)
	mux.HandleFunc("POST /api/v1/control/global", h.HandleGlobal)
	mux.HandleFunc("POST /api/v1/control/tick", h.HandleTick)
	mux.HandleFunc("POST /api/v1/balance/audit", h.HandleAudit)
}

// HandleDrive 计算 drive 信号
func (h *ControlHandler) HandleDrive(w http.ResponseWriter, r *http.Request) {
	var req tuning.DriveRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.Drive(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleBias 计算 bias 聚合值
func (h *ControlHandler) HandleBias(w http.ResponseWriter, r *http.Request) {
	var req tuning.BiasRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.Bias(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleGlobal 积分 blend weight 并返回全局状态
func (h *ControlHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	var req tuning.GlobalRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.Global(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleTick 推进整个控制向量一步
func (h *ControlHandler) HandleTick(w http.ResponseWriter, r *http.Request) {
	var req tuning.TickRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.Tick(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}

// HandleAudit 审计合成输出的分析/创意平衡
func (h *ControlHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	var req tuning.AuditRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.service.Audit(r.Context(), &req)
	writeResult(w, r, h.logger, http.StatusOK, result, err)
}
