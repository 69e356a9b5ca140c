package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"
)

const maxLogSize = 10 * 1024 * 1024

var (
	mu      sync.Mutex
	logFile *os.File
	logPath string
)

// Init 把标准 log 同时输出到终端和 path，文件超过 10MB 时先轮转。path 为空时只输出到终端。
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	if path == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %w", err)
	}

	if info, err := f.Stat(); err == nil && info.Size() > maxLogSize {
		_ = f.Close()
		backup := fmt.Sprintf("%s.%d", path, time.Now().Unix())
		_ = os.Rename(path, backup)
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("创建新日志文件失败: %w", err)
		}
	}

	logFile = f
	logPath = path
	log.SetOutput(io.MultiWriter(os.Stderr, f))

	log.Printf("[INFO] 日志已初始化，日志文件: %s", path)
	return nil
}

// Close 关闭日志文件，恢复只输出到终端
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		log.SetOutput(os.Stderr)
		_ = logFile.Close()
		logFile = nil
	}
}

// LogInfo 记录普通信息
func LogInfo(format string, args ...any) {
	log.Printf("[INFO] "+format, args...)
}

// LogError 记录错误
func LogError(format string, args ...any) {
	log.Printf("[ERROR] "+format, args...)
}

// LogPanic 记录 panic 及调用栈
func LogPanic(r any) {
	log.Printf("[PANIC] %v\n%s", r, debug.Stack())
}

// GetLogPath 返回当前日志文件路径
func GetLogPath() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}
