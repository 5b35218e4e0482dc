//go:build windows

package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/waneon/windows-magnifier/internal/dispatch"
	"github.com/waneon/windows-magnifier/internal/shortcut"

	"golang.org/x/sys/windows"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")

	procRegisterHotKey      = user32DLL.NewProc("RegisterHotKey")
	procUnregisterHotKey    = user32DLL.NewProc("UnregisterHotKey")
	procGetMessageW         = user32DLL.NewProc("GetMessageW")
	procTranslateMessage    = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW    = user32DLL.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW        = user32DLL.NewProc("PeekMessageW")
	procSetWindowsHookExW   = user32DLL.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32DLL.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32DLL.NewProc("CallNextHookEx")
	procGetKeyState         = user32DLL.NewProc("GetKeyState")
)

const (
	wmHotkey = 0x0312
	wmQuit   = 0x0012
	wmUser   = 0x0400
	// wmDispatch is the doorbell for one event queued through Post.
	wmDispatch = wmUser + 1
	pmNoRemove = 0x0000

	whMouseLL   = 14
	hcAction    = 0
	keyDownMask = 0x8000
)

// point mirrors the Win32 POINT struct.
type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct (tagMSG from winuser.h).
// Field order and types must not be changed -- the layout must match
// the Win32 binary layout on both 32-bit and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32 // reserved by Windows; required for correct struct size
}

// msllHookStruct mirrors MSLLHOOKSTRUCT.
type msllHookStruct struct {
	pt          point
	mouseData   uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

var (
	// activeHost is the host whose mouse hook is installed. Low-level hook
	// procedures carry no user data, so the callback finds its host here.
	activeHost        atomic.Pointer[Host]
	mouseHookCallback = windows.NewCallback(mouseHookProc)
)

var (
	_ dispatch.Queue     = (*Host)(nil)
	_ dispatch.Registrar = (*Host)(nil)
)

// Host pins one OS thread, owns every hotkey registration and the mouse hook
// on it, and pumps its message queue into a Handler.
type Host struct {
	queue    fifo
	threadID atomic.Uint32
	running  atomic.Bool

	// Accessed only on the host thread.
	handler    Handler
	registered []int32
	hook       uintptr
}

// NewHost creates an idle host. Call Run to start the message loop.
func NewHost() *Host {
	return &Host{}
}

// Post queues ev for the host thread. Safe for concurrent use. Events posted
// before Run are delivered once the loop starts.
func (h *Host) Post(ev dispatch.Event) error {
	return h.queue.push(ev)
}

// Register registers every key shortcut of table as a global hotkey whose ID
// is the shortcut index. On failure the hotkeys registered by this call are
// released again. Must run on the host thread.
func (h *Host) Register(table *shortcut.Table) error {
	for _, idx := range table.KeyIndices() {
		s := table.At(idx)
		if err := registerHotKey(int32(idx), uint32(s.Combination.Modifiers), uint32(s.Combination.Key)); err != nil {
			if unregErr := h.Unregister(); unregErr != nil {
				slog.Warn("[WARN-HOTKEY] rollback after failed registration incomplete", "error", unregErr)
			}
			return &dispatch.RegistrationError{Index: idx, Spec: s.Spec, Err: err}
		}
		h.registered = append(h.registered, int32(idx))
	}
	slog.Debug("[DEBUG-HOTKEY] hotkeys registered", "count", len(h.registered))
	return nil
}

// Unregister releases every hotkey registered on the host thread.
func (h *Host) Unregister() error {
	var errs []error
	for _, id := range h.registered {
		if err := unregisterHotKey(id); err != nil {
			errs = append(errs, fmt.Errorf("unregister hotkey %d: %w", id, err))
		}
	}
	h.registered = nil
	return errors.Join(errs...)
}

// Run locks the calling goroutine to its OS thread, calls start there and
// pumps messages until the handler reports done, a step fails or ctx is
// cancelled. Hotkeys, the mouse hook and the cleanup returned by start are
// all released on the host thread before Run returns.
func (h *Host) Run(ctx context.Context, start StartFunc) error {
	if start == nil {
		return errors.New("start callback is required")
	}
	// Pre-check DLL availability so that failures produce clean errors
	// instead of panics from LazyProc.Call.
	if err := user32DLL.Load(); err != nil {
		return fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	if !h.running.CompareAndSwap(false, true) {
		return errors.New("host is already running")
	}
	defer h.running.Store(false)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	threadID := windows.GetCurrentThreadId()
	initMessageQueue()
	h.threadID.Store(threadID)
	defer h.threadID.Store(0)

	handler, cleanup, err := start()
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	h.handler = handler
	defer func() { h.handler = nil }()
	defer func() {
		if err := h.Unregister(); err != nil {
			slog.Warn("[WARN-HOTKEY] failed to unregister hotkeys on exit", "error", err)
		}
	}()

	if err := h.installMouseHook(); err != nil {
		return err
	}
	defer h.uninstallMouseHook()

	if err := h.queue.arm(func() error { return postThreadMessage(threadID, wmDispatch) }); err != nil {
		h.queue.disarm()
		return fmt.Errorf("deliver queued events: %w", err)
	}
	defer h.queue.disarm()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			if err := postThreadMessage(threadID, wmQuit); err != nil {
				slog.Warn("[WARN-HOTKEY] failed to post WM_QUIT", "error", err)
			}
		case <-stop:
		}
	}()

	return h.loop()
}

func (h *Host) loop() error {
	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(
			uintptr(unsafe.Pointer(&msg)),
			0,
			0,
			0,
		)
		switch int32(ret) {
		case -1:
			return fmt.Errorf("GetMessageW: %w", lastErr)
		case 0:
			slog.Debug("[DEBUG-HOTKEY] message loop received WM_QUIT")
			return nil
		}

		var ev dispatch.Event
		switch msg.message {
		case wmHotkey:
			ev = dispatch.HotkeyEvent{Index: int(msg.wParam)}
		case wmDispatch:
			queued, ok := h.queue.pop()
			if !ok {
				continue
			}
			ev = queued
		default:
			// Return values are informational for a window-less thread loop.
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
			continue
		}

		done, err := h.handler.Step(ev)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (h *Host) installMouseHook() error {
	if !activeHost.CompareAndSwap(nil, h) {
		return errors.New("mouse hook is owned by another host")
	}
	var module windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &module); err != nil {
		activeHost.Store(nil)
		return fmt.Errorf("GetModuleHandleEx: %w", err)
	}
	hook, _, err := procSetWindowsHookExW.Call(whMouseLL, mouseHookCallback, uintptr(module), 0)
	if hook == 0 {
		activeHost.Store(nil)
		return fmt.Errorf("failed to register mouse hook: %w", callErr(err, "SetWindowsHookExW failed"))
	}
	h.hook = hook
	return nil
}

func (h *Host) uninstallMouseHook() {
	if h.hook != 0 {
		if res, _, err := procUnhookWindowsHookEx.Call(h.hook); res == 0 {
			slog.Warn("[WARN-HOTKEY] failed to remove mouse hook", "error", callErr(err, "UnhookWindowsHookEx failed"))
		}
		h.hook = 0
	}
	activeHost.CompareAndSwap(h, nil)
}

// mouseHookProc runs on the host thread while it waits in GetMessageW.
// A nonzero return swallows the event.
func mouseHookProc(code, wParam, lParam uintptr) (ret uintptr) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] mouse hook recovered", "panic", r)
			ret, _, _ = procCallNextHookEx.Call(0, code, wParam, lParam)
		}
	}()

	if int32(code) >= hcAction {
		if h := activeHost.Load(); h != nil && h.handler != nil {
			info := (*msllHookStruct)(unsafe.Pointer(lParam))
			if ev, ok := translatePointer(uint32(wParam), info.mouseData); ok {
				if ev.Kind != dispatch.PointerMove {
					ev.Modifiers = modifiersFromKeys(keyDown)
				}
				if h.handler.HandlePointer(ev) {
					return 1
				}
			}
		}
	}
	ret, _, _ = procCallNextHookEx.Call(0, code, wParam, lParam)
	return ret
}

func keyDown(vk int) bool {
	state, _, _ := procGetKeyState.Call(uintptr(vk))
	return uint16(state)&keyDownMask != 0
}

// initMessageQueue forces Windows to create the thread message queue so that
// PostThreadMessageW can reach the thread before its first GetMessageW.
func initMessageQueue() {
	var qmsg winMsg
	ret, _, peekErr := procPeekMessageW.Call(
		uintptr(unsafe.Pointer(&qmsg)),
		0,
		0,
		0,
		pmNoRemove,
	)
	if ret == 0 && peekErr != syscall.Errno(0) {
		slog.Debug("[DEBUG-HOTKEY] PeekMessageW for queue init returned error", "error", peekErr)
	}
}

func registerHotKey(hotkeyID int32, modifiers uint32, key uint32) error {
	res, _, err := procRegisterHotKey.Call(
		0,
		uintptr(hotkeyID),
		uintptr(modifiers),
		uintptr(key),
	)
	if res != 0 {
		return nil
	}
	return callErr(err, "RegisterHotKey failed")
}

func unregisterHotKey(hotkeyID int32) error {
	res, _, err := procUnregisterHotKey.Call(0, uintptr(hotkeyID))
	if res != 0 {
		return nil
	}
	return callErr(err, "UnregisterHotKey failed")
}

func postThreadMessage(threadID uint32, message uint32) error {
	if threadID == 0 {
		return errors.New("cannot post thread message: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(
		uintptr(threadID),
		uintptr(message),
		0,
		0,
	)
	if res != 0 {
		return nil
	}
	return callErr(err, "PostThreadMessageW failed")
}

// callErr normalizes the last-error of a failed Win32 call; some APIs fail
// without setting it.
func callErr(err error, fallback string) error {
	if err == nil || err == syscall.Errno(0) {
		return errors.New(fallback)
	}
	return err
}
