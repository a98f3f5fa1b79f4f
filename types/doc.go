// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 TuneFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 tuning、store、api 等上层
模块提供统一的错误契约与调用方身份传播。

# 核心类型

  - Error / ErrorCode — 结构化错误，含 HTTP 状态码、Retryable 标记与 Cause
  - 错误码：INVALID_REQUEST、UNAUTHORIZED、NOT_FOUND、VERSION_CONFLICT、
    RATE_LIMITED、INTERNAL_ERROR

# 主要能力

  - 错误构造：NewValidationError / NewNotFoundError / NewUnauthorizedError /
    NewVersionConflictError
  - 错误工具链：WrapError / AsError / IsErrorCode / IsRetryable / GetErrorCode
  - 身份传播：WithCallerID / CallerID，以及 TenantID、Roles
*/
package types
