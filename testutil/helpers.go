// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试上下文
//
// 使用方法:
//
//	ctx := testutil.CallerContext(t, "tester")
// =============================================================================
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/tuneflow/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CallerContext 返回携带已认证调用方身份的测试上下文
func CallerContext(t *testing.T, callerID string) context.Context {
	return types.WithCallerID(TestContext(t), callerID)
}
