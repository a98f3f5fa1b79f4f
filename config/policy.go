package config

import (
	"fmt"

	"github.com/BaSui01/tuneflow/balance"
	"github.com/BaSui01/tuneflow/control"
	"github.com/BaSui01/tuneflow/internal/cache"
	"github.com/BaSui01/tuneflow/internal/database"
	"github.com/BaSui01/tuneflow/internal/server"
	"github.com/BaSui01/tuneflow/tuning"
)

// =============================================================================
// 🎛️ 策略常量配置
// =============================================================================
// 领域包的 Policy 是嵌套结构，这里展开为扁平字段以便环境变量覆盖，
// 再由 Policy() 还原为领域类型。
// =============================================================================

// TuningConfig 调优启发式常量
type TuningConfig struct {
	PerformanceBonus   float64 `yaml:"performance_bonus" env:"PERFORMANCE_BONUS"`
	IterationBonus     float64 `yaml:"iteration_bonus" env:"ITERATION_BONUS"`
	CostReductionBonus float64 `yaml:"cost_reduction_bonus" env:"COST_REDUCTION_BONUS"`
	MaxAlternatives    int     `yaml:"max_alternatives" env:"MAX_ALTERNATIVES"`

	SensitivityHigh       float64 `yaml:"sensitivity_high" env:"SENSITIVITY_HIGH"`
	SensitivityMedium     float64 `yaml:"sensitivity_medium" env:"SENSITIVITY_MEDIUM"`
	SensitivityMinSamples int     `yaml:"sensitivity_min_samples" env:"SENSITIVITY_MIN_SAMPLES"`

	FeedbackTarget     float64 `yaml:"feedback_target" env:"FEEDBACK_TARGET"`
	GoodThreshold      float64 `yaml:"good_threshold" env:"GOOD_THRESHOLD"`
	GapThreshold       float64 `yaml:"gap_threshold" env:"GAP_THRESHOLD"`
	LatencyThresholdMS float64 `yaml:"latency_threshold_ms" env:"LATENCY_THRESHOLD_MS"`
	QualityThreshold   float64 `yaml:"quality_threshold" env:"QUALITY_THRESHOLD"`

	LearningRate    float64 `yaml:"learning_rate" env:"LEARNING_RATE"`
	ExplorationRate float64 `yaml:"exploration_rate" env:"EXPLORATION_RATE"`
	Seed            uint64  `yaml:"seed" env:"SEED"`
}

// ControlConfig 状态控制环常量
type ControlConfig struct {
	DriveBaseline float64 `yaml:"drive_baseline" env:"DRIVE_BASELINE"`
	DriveBoost    float64 `yaml:"drive_boost" env:"DRIVE_BOOST"`
	DriveSpread   float64 `yaml:"drive_spread" env:"DRIVE_SPREAD"`
	DriveDecay    float64 `yaml:"drive_decay" env:"DRIVE_DECAY"`

	BiasThreshold        float64 `yaml:"bias_threshold" env:"BIAS_THRESHOLD"`
	BiasSensitivity      float64 `yaml:"bias_sensitivity" env:"BIAS_SENSITIVITY"`
	BiasRewardOffset     float64 `yaml:"bias_reward_offset" env:"BIAS_REWARD_OFFSET"`
	BiasPriorityScale    float64 `yaml:"bias_priority_scale" env:"BIAS_PRIORITY_SCALE"`
	BiasDefaultQuality   float64 `yaml:"bias_default_quality" env:"BIAS_DEFAULT_QUALITY"`
	BiasDefaultRelevance float64 `yaml:"bias_default_relevance" env:"BIAS_DEFAULT_RELEVANCE"`

	AlphaD   float64 `yaml:"alpha_d" env:"ALPHA_D"`
	BetaD    float64 `yaml:"beta_d" env:"BETA_D"`
	LambdaB  float64 `yaml:"lambda_b" env:"LAMBDA_B"`
	TimeStep float64 `yaml:"time_step" env:"TIME_STEP"`

	HistoryCapacity int `yaml:"history_capacity" env:"HISTORY_CAPACITY"`
}

// BalanceConfig 平衡审计阈值与关键词
type BalanceConfig struct {
	ConsensusThreshold float64  `yaml:"consensus_threshold" env:"CONSENSUS_THRESHOLD"`
	BalanceTolerance   float64  `yaml:"balance_tolerance" env:"BALANCE_TOLERANCE"`
	AnalyticKeywords   []string `yaml:"analytic_keywords" env:"ANALYTIC_KEYWORDS"`
	CreativeKeywords   []string `yaml:"creative_keywords" env:"CREATIVE_KEYWORDS"`
}

// DefaultTuningConfig 由 tuning.DefaultPolicy 展开
func DefaultTuningConfig() TuningConfig {
	p := tuning.DefaultPolicy()
	return TuningConfig{
		PerformanceBonus:      p.Scoring.PerformanceBonus,
		IterationBonus:        p.Scoring.IterationBonus,
		CostReductionBonus:    p.Scoring.CostReductionBonus,
		MaxAlternatives:       p.Scoring.MaxAlternatives,
		SensitivityHigh:       p.Sensitivity.HighThreshold,
		SensitivityMedium:     p.Sensitivity.MediumThreshold,
		SensitivityMinSamples: p.Sensitivity.MinSamples,
		FeedbackTarget:        p.Feedback.Target,
		GoodThreshold:         p.Feedback.GoodThreshold,
		GapThreshold:          p.Feedback.GapThreshold,
		LatencyThresholdMS:    p.Feedback.LatencyThresholdMS,
		QualityThreshold:      p.Feedback.QualityThreshold,
		LearningRate:          p.Adjustment.LearningRate,
		ExplorationRate:       p.Adjustment.ExplorationRate,
		Seed:                  p.Adjustment.Seed,
	}
}

// Policy 还原为 tuning.Policy
func (c TuningConfig) Policy() tuning.Policy {
	return tuning.Policy{
		Scoring: tuning.ScoringPolicy{
			PerformanceBonus:   c.PerformanceBonus,
			IterationBonus:     c.IterationBonus,
			CostReductionBonus: c.CostReductionBonus,
			MaxAlternatives:    c.MaxAlternatives,
		},
		Sensitivity: tuning.SensitivityPolicy{
			HighThreshold:   c.SensitivityHigh,
			MediumThreshold: c.SensitivityMedium,
			MinSamples:      c.SensitivityMinSamples,
		},
		Feedback: tuning.FeedbackPolicy{
			Target:             c.FeedbackTarget,
			GoodThreshold:      c.GoodThreshold,
			GapThreshold:       c.GapThreshold,
			LatencyThresholdMS: c.LatencyThresholdMS,
			QualityThreshold:   c.QualityThreshold,
		},
		Adjustment: tuning.AdjustmentPolicy{
			LearningRate:    c.LearningRate,
			ExplorationRate: c.ExplorationRate,
			Seed:            c.Seed,
		},
	}
}

func (c TuningConfig) validate() []string {
	var errs []string
	if c.GoodThreshold > c.FeedbackTarget {
		errs = append(errs, "tuning.good_threshold must not exceed tuning.feedback_target")
	}
	if c.SensitivityMedium > c.SensitivityHigh {
		errs = append(errs, "tuning.sensitivity_medium must not exceed tuning.sensitivity_high")
	}
	if !unit(c.LearningRate) || !unit(c.ExplorationRate) {
		errs = append(errs, "tuning learning and exploration rates must be within [0, 1]")
	}
	if c.MaxAlternatives < 0 || c.SensitivityMinSamples < 0 {
		errs = append(errs, "tuning counts must not be negative")
	}
	return errs
}

// DefaultControlConfig 由 control.DefaultPolicy 展开
func DefaultControlConfig() ControlConfig {
	p := control.DefaultPolicy()
	return ControlConfig{
		DriveBaseline:        p.Drive.Baseline,
		DriveBoost:           p.Drive.Boost,
		DriveSpread:          p.Drive.Spread,
		DriveDecay:           p.Drive.Decay,
		BiasThreshold:        p.Bias.Threshold,
		BiasSensitivity:      p.Bias.Sensitivity,
		BiasRewardOffset:     p.Bias.RewardOffset,
		BiasPriorityScale:    p.Bias.PriorityScale,
		BiasDefaultQuality:   p.Bias.DefaultQuality,
		BiasDefaultRelevance: p.Bias.DefaultRelevance,
		AlphaD:               p.Global.AlphaD,
		BetaD:                p.Global.BetaD,
		LambdaB:              p.Global.LambdaB,
		TimeStep:             p.Global.TimeStep,
		HistoryCapacity:      p.HistoryCapacity,
	}
}

// Policy 还原为 control.Policy
func (c ControlConfig) Policy() control.Policy {
	return control.Policy{
		Drive: control.DriveParams{
			Baseline: c.DriveBaseline,
			Boost:    c.DriveBoost,
			Spread:   c.DriveSpread,
			Decay:    c.DriveDecay,
		},
		Bias: control.BiasPolicy{
			Threshold:        c.BiasThreshold,
			Sensitivity:      c.BiasSensitivity,
			RewardOffset:     c.BiasRewardOffset,
			PriorityScale:    c.BiasPriorityScale,
			DefaultQuality:   c.BiasDefaultQuality,
			DefaultRelevance: c.BiasDefaultRelevance,
		},
		Global: control.GlobalParams{
			AlphaD:   c.AlphaD,
			BetaD:    c.BetaD,
			LambdaB:  c.LambdaB,
			TimeStep: c.TimeStep,
		},
		HistoryCapacity: c.HistoryCapacity,
	}
}

func (c ControlConfig) validate() []string {
	var errs []string
	if c.HistoryCapacity <= 0 {
		errs = append(errs, "control.history_capacity must be positive")
	}
	if c.DriveDecay < 0 {
		errs = append(errs, "control.drive_decay must not be negative")
	}
	if c.TimeStep <= 0 {
		errs = append(errs, "control.time_step must be positive")
	}
	return errs
}

// DefaultBalanceConfig 由 balance.DefaultPolicy 展开
func DefaultBalanceConfig() BalanceConfig {
	p := balance.DefaultPolicy()
	return BalanceConfig{
		ConsensusThreshold: p.ConsensusThreshold,
		BalanceTolerance:   p.BalanceTolerance,
		AnalyticKeywords:   p.AnalyticKeywords,
		CreativeKeywords:   p.CreativeKeywords,
	}
}

// Policy 还原为 balance.Policy
func (c BalanceConfig) Policy() balance.Policy {
	return balance.Policy{
		ConsensusThreshold: c.ConsensusThreshold,
		BalanceTolerance:   c.BalanceTolerance,
		AnalyticKeywords:   append([]string(nil), c.AnalyticKeywords...),
		CreativeKeywords:   append([]string(nil), c.CreativeKeywords...),
	}
}

func (c BalanceConfig) validate() []string {
	var errs []string
	if !unit(c.ConsensusThreshold) || !unit(c.BalanceTolerance) {
		errs = append(errs, "balance thresholds must be within [0, 1]")
	}
	return errs
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// =============================================================================
// 🔌 组件配置转换
// =============================================================================

// PoolConfig 转换为连接池配置
func (d *DatabaseConfig) PoolConfig() database.PoolConfig {
	pc := database.DefaultPoolConfig()
	pc.MaxOpenConns = d.MaxOpenConns
	pc.MaxIdleConns = d.MaxIdleConns
	pc.ConnMaxLifetime = d.ConnMaxLifetime
	pc.HealthCheckInterval = d.HealthCheckInterval
	return pc
}

// CacheConfig 转换为 Redis 连接管理器配置
func (r *RedisConfig) CacheConfig() cache.Config {
	cc := cache.DefaultConfig()
	cc.Addr = r.Addr
	cc.Password = r.Password
	cc.DB = r.DB
	cc.PoolSize = r.PoolSize
	cc.MinIdleConns = r.MinIdleConns
	cc.TLSEnabled = r.TLSEnabled
	return cc
}

// HTTPConfig 转换为 API 服务器配置
func (s *ServerConfig) HTTPConfig() server.Config {
	sc := server.DefaultConfig()
	sc.Addr = fmt.Sprintf(":%d", s.HTTPPort)
	sc.ReadTimeout = s.ReadTimeout
	sc.WriteTimeout = s.WriteTimeout
	sc.ShutdownTimeout = s.ShutdownTimeout
	sc.TLSCertFile = s.TLSCertFile
	sc.TLSKeyFile = s.TLSKeyFile
	return sc
}

// MetricsConfig 转换为指标服务器配置，指标端口始终走明文
func (s *ServerConfig) MetricsConfig() server.Config {
	sc := server.DefaultConfig()
	sc.Addr = fmt.Sprintf(":%d", s.MetricsPort)
	sc.ShutdownTimeout = s.ShutdownTimeout
	return sc
}

// ServiceConfig 组装 tuning.Service 的配置
func (c *Config) ServiceConfig() tuning.ServiceConfig {
	sc := tuning.DefaultServiceConfig()
	sc.Policy = c.Tuning.Policy()
	sc.Control = c.Control.Policy()
	sc.Balance = c.Balance.Policy()
	sc.ConflictRetries = c.Store.ConflictRetries
	sc.RetryBackoff = c.Store.RetryBackoff
	sc.FeedbackLimit = c.Store.FeedbackLimit
	return sc
}

// String 返回脱敏后的摘要，用于启动日志
func (c *Config) String() string {
	return fmt.Sprintf("store=%s db=%s http=%d metrics=%d telemetry=%v",
		c.Store.Type, c.Database.Driver, c.Server.HTTPPort, c.Server.MetricsPort, c.Telemetry.Enabled)
}
