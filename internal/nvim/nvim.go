package nvim

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"

	"github.com/sanadlab/migmate/internal/fs"
	"github.com/sanadlab/migmate/internal/state"
	"github.com/sanadlab/migmate/internal/textedit"
	"github.com/sanadlab/migmate/model"
)

const (
	undoDir = "~/.local/state/nvim/undo/"
)

// Manager connects to a Neovim instance and uses its buffers as documents. Snapshot versions are buffer changedticks.
type Manager struct {
	nvim          *nvim.Nvim
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string
	// save writes buffers to disk after each apply.
	save bool
}

// New connects to the instance at NVIM_LISTEN_ADDRESS, or starts a headless one. With save set, buffers are written after every apply.
func New(save bool) (*Manager, error) {
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			return &Manager{nvim: v, save: save}, nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "migmate-nvim-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir for nvim: %w", err)
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to start headless nvim: %w. Is 'nvim' in your PATH?", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to connect to headless nvim: %w", err)
	}

	m := &Manager{
		nvim:          v,
		isSelfStarted: true,
		cmd:           cmd,
		socketPath:    socketPath,
		save:          save,
	}
	if err := m.configureTempInstance(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// configureTempInstance enables a persistent undofile so undo works across instances.
func (m *Manager) configureTempInstance() error {
	home, _ := os.UserHomeDir()
	expandedUndoDir := strings.Replace(undoDir, "~", home, 1)
	if err := os.MkdirAll(expandedUndoDir, 0o755); err != nil {
		return fmt.Errorf("failed to create undo dir: %w", err)
	}

	b := m.nvim.NewBatch()
	b.Command("set undofile")
	b.Command(fmt.Sprintf("set undodir=%s", expandedUndoDir))
	b.Command("set noswapfile")
	return b.Execute()
}

// Close disconnects from Neovim and stops it if it was self-started.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
	if m.isSelfStarted && m.cmd != nil && m.cmd.Process != nil {
		if err := m.cmd.Process.Kill(); err == nil {
			_ = m.cmd.Wait()
			os.RemoveAll(filepath.Dir(m.socketPath))
		}
	}
}

// buffer loads identity into the current window and returns its buffer.
func (m *Manager) buffer(identity string) (nvim.Buffer, error) {
	absPath, err := filepath.Abs(identity)
	if err != nil {
		return 0, err
	}
	if err := m.nvim.Command("edit " + escapePath(absPath)); err != nil {
		return 0, fmt.Errorf("edit %s: %w", absPath, err)
	}
	return m.nvim.CurrentBuffer()
}

// Open snapshots the buffer of identity. Buffer lines carry no line endings, so the text is rebuilt from 'fileformat' and 'eol'.
func (m *Manager) Open(ctx context.Context, identity string) (*textedit.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := m.buffer(identity)
	if err != nil {
		return nil, err
	}

	var (
		lines      [][]byte
		tick       int
		fileformat string
		eol        bool
	)
	b := m.nvim.NewBatch()
	b.BufferLines(buf, 0, -1, true, &lines)
	b.BufferChangedTick(buf, &tick)
	b.BufferOption(buf, "fileformat", &fileformat)
	b.BufferOption(buf, "eol", &eol)
	if err := b.Execute(); err != nil {
		return nil, fmt.Errorf("read buffer %s: %w", identity, err)
	}

	return textedit.NewVersion(joinLines(lines, fileformat, eol), strconv.Itoa(tick)), nil
}

// Apply replaces the buffer of identity with the edited text in one batch. It fails with textedit.ErrStale when the changedtick moved since snap.
func (m *Manager) Apply(ctx context.Context, identity string, snap *textedit.Snapshot, edits []model.Edit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := m.buffer(identity)
	if err != nil {
		return err
	}
	tick, err := m.nvim.BufferChangedTick(buf)
	if err != nil {
		return err
	}
	if strconv.Itoa(tick) != snap.Version {
		return fmt.Errorf("%s: %w", identity, textedit.ErrStale)
	}

	out, err := snap.Apply(edits)
	if err != nil {
		return err
	}
	lines, eol := splitLines(out)

	b := m.nvim.NewBatch()
	b.SetBufferLines(buf, 0, -1, true, lines)
	b.SetBufferOption(buf, "eol", eol)
	if m.save {
		b.Command("write")
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("update buffer %s: %w", identity, err)
	}
	return nil
}

// Revert undoes the last change of op's file in Neovim if the file on disk still holds the applied version.
func (m *Manager) Revert(ctx context.Context, op state.Operation) error {
	return m.history(ctx, op.Path, op.AfterHash, "undo")
}

// Reapply redoes the change of op's file if the file on disk still holds the reverted version.
func (m *Manager) Reapply(ctx context.Context, op state.Operation) error {
	return m.history(ctx, op.Path, op.BeforeHash, "redo")
}

func (m *Manager) history(ctx context.Context, path, expectHash, command string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	currentHash, err := fs.GetFileSHA256(path)
	if err != nil {
		return err
	}
	if currentHash != expectHash {
		return fmt.Errorf("%s: %w", path, textedit.ErrStale)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	b := m.nvim.NewBatch()
	b.Command("edit! " + escapePath(absPath))
	b.Command(command)
	b.Command("write")
	return b.Execute()
}

func escapePath(path string) string {
	return strings.NewReplacer(" ", `\ `, "%", `\%`, "#", `\#`).Replace(path)
}

// joinLines rebuilds buffer text the way Neovim writes it.
func joinLines(lines [][]byte, fileformat string, eol bool) string {
	sep := "\n"
	if fileformat == "dos" {
		sep = "\r\n"
	}
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.Write(l)
	}
	if eol && !(len(lines) == 1 && len(lines[0]) == 0) {
		sb.WriteString(sep)
	}
	return sb.String()
}

// splitLines turns text into buffer lines and the value of 'eol'.
func splitLines(text string) ([][]byte, bool) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	eol := strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	parts := strings.Split(text, "\n")
	lines := make([][]byte, len(parts))
	for i, p := range parts {
		lines[i] = []byte(p)
	}
	return lines, eol
}
