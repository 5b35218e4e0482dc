//go:build windows

package magnification

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"syscall"
	"unsafe"

	"github.com/waneon/windows-magnifier/internal/magnifier"

	"golang.org/x/sys/windows"
)

var (
	magnificationDLL = windows.NewLazySystemDLL("magnification.dll")
	user32DLL        = windows.NewLazySystemDLL("user32.dll")

	procMagInitialize             = magnificationDLL.NewProc("MagInitialize")
	procMagUninitialize           = magnificationDLL.NewProc("MagUninitialize")
	procMagSetFullscreenTransform = magnificationDLL.NewProc("MagSetFullscreenTransform")
	procMagSetInputTransform      = magnificationDLL.NewProc("MagSetInputTransform")

	procSetProcessDPIAware = user32DLL.NewProc("SetProcessDPIAware")
	procGetCursorPos       = user32DLL.NewProc("GetCursorPos")
	procGetSystemMetrics   = user32DLL.NewProc("GetSystemMetrics")
)

const (
	smCXScreen = 0
	smCYScreen = 1
)

// point mirrors the Win32 POINT struct.
type point struct {
	x int32
	y int32
}

// Magnifier drives the full-screen magnification transform. Calls must come
// from the thread that called Open.
type Magnifier struct {
	inputTransformed bool
	closed           bool
}

// Open marks the process DPI aware and initializes the Magnification runtime.
func Open() (*Magnifier, error) {
	// Pre-check DLL availability so that failures produce clean errors
	// instead of panics from LazyProc.Call.
	if err := user32DLL.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	if err := magnificationDLL.Load(); err != nil {
		return nil, fmt.Errorf("magnification.dll is unavailable: %w", err)
	}

	if res, _, err := procSetProcessDPIAware.Call(); res == 0 {
		return nil, fmt.Errorf("failed to set dpi-aware setting: %w", callErr(err, "SetProcessDPIAware failed"))
	}
	if res, _, err := procMagInitialize.Call(); res == 0 {
		return nil, fmt.Errorf("failed to run magnification: %w", callErr(err, "MagInitialize failed"))
	}
	return &Magnifier{}, nil
}

// Apply sets the full-screen zoom factor with the top-left source corner at
// (x, y).
func (m *Magnifier) Apply(factor float32, x, y int) error {
	if m.closed {
		return errors.New("magnifier is closed")
	}
	return setFullscreenTransform(factor, x, y)
}

// ApplyInputTransform maps pointer input from dst back to src. It fails
// unless the process runs with uiAccess.
func (m *Magnifier) ApplyInputTransform(src, dst magnifier.Rect) error {
	if m.closed {
		return errors.New("magnifier is closed")
	}
	if err := setInputTransform(true, toRect(src), toRect(dst)); err != nil {
		return err
	}
	m.inputTransformed = true
	return nil
}

// CursorPos returns the cursor position in physical pixels.
func (m *Magnifier) CursorPos() (magnifier.Point, error) {
	var pt point
	if res, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt))); res == 0 {
		return magnifier.Point{}, callErr(err, "GetCursorPos failed")
	}
	return magnifier.Point{X: int(pt.x), Y: int(pt.y)}, nil
}

// Size returns the primary screen size in physical pixels.
func (m *Magnifier) Size() (int, int, error) {
	width, _, _ := procGetSystemMetrics.Call(smCXScreen)
	height, _, _ := procGetSystemMetrics.Call(smCYScreen)
	if int32(width) <= 0 || int32(height) <= 0 {
		return 0, 0, errors.New("GetSystemMetrics returned an empty screen")
	}
	return int(int32(width)), int(int32(height)), nil
}

// Close restores the unmagnified screen and releases the runtime. Safe to
// call more than once.
func (m *Magnifier) Close() error {
	if m == nil || m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	if err := setFullscreenTransform(1.0, 0, 0); err != nil {
		errs = append(errs, fmt.Errorf("restore zoom: %w", err))
	}
	if m.inputTransformed {
		if err := setInputTransform(false, windows.Rect{}, windows.Rect{}); err != nil {
			slog.Debug("[DEBUG-MAGNIFY] failed to disable input transform", "error", err)
		}
	}
	if res, _, err := procMagUninitialize.Call(); res == 0 {
		errs = append(errs, callErr(err, "MagUninitialize failed"))
	}
	return errors.Join(errs...)
}

// setFullscreenTransform passes the factor as raw float32 bits; the runtime
// mirrors the first integer arguments into the float registers.
func setFullscreenTransform(factor float32, x, y int) error {
	res, _, err := procMagSetFullscreenTransform.Call(
		uintptr(math.Float32bits(factor)),
		uintptr(x),
		uintptr(y),
	)
	if res == 0 {
		return callErr(err, "MagSetFullscreenTransform failed")
	}
	return nil
}

func setInputTransform(enabled bool, src, dst windows.Rect) error {
	var flag uintptr
	if enabled {
		flag = 1
	}
	res, _, err := procMagSetInputTransform.Call(
		flag,
		uintptr(unsafe.Pointer(&src)),
		uintptr(unsafe.Pointer(&dst)),
	)
	if res == 0 {
		return callErr(err, "MagSetInputTransform failed")
	}
	return nil
}

func toRect(r magnifier.Rect) windows.Rect {
	return windows.Rect{
		Left:   int32(r.Left),
		Top:    int32(r.Top),
		Right:  int32(r.Right),
		Bottom: int32(r.Bottom),
	}
}

func callErr(err error, fallback string) error {
	if err == nil || err == syscall.Errno(0) {
		return errors.New(fallback)
	}
	return err
}
