package database

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/xelth-com/clamflow-labels/internal/logger"
)

const (
	localDataDir  = "./db_data"
	localPort     = 5433
	localPassword = "postgres"

	probeEvery = 500 * time.Millisecond
)

// localServer manages a postgres child process for single-machine installs.
type localServer struct {
	dir  string
	port int
	pg   *embeddedpostgres.EmbeddedPostgres
	log  *logger.Logger
}

func newLocalServer(log *logger.Logger) *localServer {
	return &localServer{dir: localDataDir, port: localPort, log: log}
}

func (s *localServer) start(database, user string) error {
	s.reapOrphan()
	if err := s.awaitFreePort(6); err != nil {
		return err
	}

	s.pg = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(s.dir).
		Port(uint32(s.port)).
		Database(database).
		Username(user).
		Password(localPassword))

	s.log.Info("starting embedded postgres", "port", s.port, "data", s.dir)
	if err := s.pg.Start(); err != nil {
		s.pg = nil
		return fmt.Errorf("start embedded postgres: %w", err)
	}
	return nil
}

func (s *localServer) stop() {
	if s == nil || s.pg == nil {
		return
	}
	s.log.Info("stopping embedded postgres")
	if err := s.pg.Stop(); err != nil {
		s.log.Warn("embedded postgres stop", "error", err)
	}
	s.pg = nil
}

func (s *localServer) portBusy() bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port)), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (s *localServer) awaitFreePort(tries int) error {
	for range tries {
		if !s.portBusy() {
			return nil
		}
		time.Sleep(probeEvery)
	}
	if s.portBusy() {
		return fmt.Errorf("port %d held by another process", s.port)
	}
	return nil
}

// reapOrphan terminates a server left behind by a crashed run, identified
// through the first line of its postmaster.pid.
func (s *localServer) reapOrphan() {
	pidPath := filepath.Join(s.dir, "postmaster.pid")
	raw, err := os.ReadFile(pidPath)
	if err != nil {
		return
	}
	first, _, _ := strings.Cut(string(raw), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		s.log.Warn("unreadable postmaster.pid", "error", err)
		return
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(pidPath)
		return
	}
	defer os.Remove(pidPath)
	// signal 0 only probes whether the process exists
	alive := func() bool { return proc.Signal(syscall.Signal(0)) == nil }

	if !alive() {
		s.log.Info("removing stale postmaster.pid", "pid", pid)
		return
	}

	s.log.Warn("terminating orphaned embedded postgres", "pid", pid)
	_ = proc.Signal(syscall.SIGTERM)
	for range 10 {
		time.Sleep(probeEvery)
		if !alive() {
			return
		}
	}
	s.log.Warn("orphaned postgres survived SIGTERM", "pid", pid)
	_ = proc.Kill()
	time.Sleep(probeEvery)
}
