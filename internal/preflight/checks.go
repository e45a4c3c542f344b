package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sys/unix"
)

const dialTimeout = 3 * time.Second

// CheckDirectoryAccess verifies that the directory is readable and writable.
// A missing directory passes when it could be created.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			parent, perr := existingParent(path)
			if perr != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, perr)}
			}
			if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	target, err := existingParent(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	var st unix.Statfs_t
	if err := unix.Statfs(target, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", target, err)}
	}
	free := uint64(st.Bavail) * uint64(st.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s free, need %s)", target, formatBytes(free), formatBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", target, formatBytes(free))}
}

// CheckPeer verifies that a gRPC peer address accepts TCP connections.
func CheckPeer(ctx context.Context, party, addr string) Result {
	name := "Peer " + party
	if strings.TrimSpace(addr) == "" {
		return Result{Name: name, Detail: "no address configured in [transport.peers]"}
	}
	if err := dial(ctx, addr); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (unreachable: %s)", addr, summarizeDialError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", addr)}
}

// CheckBroker verifies that the AMQP broker in url accepts TCP connections.
func CheckBroker(ctx context.Context, url string) Result {
	const name = "AMQP broker"
	if strings.TrimSpace(url) == "" {
		return Result{Name: name, Detail: "amqp_url not configured"}
	}
	uri, err := amqp.ParseURI(url)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid amqp_url: %v", err)}
	}
	addr := net.JoinHostPort(uri.Host, fmt.Sprint(uri.Port))
	if err := dial(ctx, addr); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (unreachable: %s)", addr, summarizeDialError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", addr)}
}

func dial(ctx context.Context, addr string) error {
	checkCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(checkCtx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// existingParent walks up from path to the nearest directory that exists.
func existingParent(path string) (string, error) {
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", current)
			}
			return current, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", errors.New("no existing parent directory")
		}
		current = parent
	}
}

// summarizeDialError produces a human-readable summary for connection failures.
func summarizeDialError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
