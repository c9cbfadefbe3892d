package service

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"planner/internal/config"
)

// BackupService dumps the database to a timestamped file once a day on a
// cron schedule. It is independent of rollover, which stays
// request-driven.
type BackupService struct {
	cron *cron.Cron
	cfg  *config.Config
}

func NewBackupService(cfg *config.Config, loc *time.Location) *BackupService {
	return &BackupService{
		cron: cron.New(cron.WithLocation(loc)),
		cfg:  cfg,
	}
}

// Start registers the daily job and starts the scheduler.
func (s *BackupService) Start() error {
	spec, err := buildDailySpec(s.cfg.BackupTime)
	if err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(spec, s.runBackup); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("🗄️  Daily backup scheduled at %s into %s", s.cfg.BackupTime, s.cfg.BackupDir)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *BackupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *BackupService) runBackup() {
	if err := os.MkdirAll(s.cfg.BackupDir, 0o755); err != nil {
		log.Printf("❌ Backup dir: %v", err)
		return
	}

	file := filepath.Join(s.cfg.BackupDir,
		fmt.Sprintf("planner_%s.sql", time.Now().Format("20060102_150405")))

	cmd := exec.Command("pg_dump",
		"-h", s.cfg.DBHost,
		"-p", s.cfg.DBPort,
		"-U", s.cfg.DBUser,
		"-d", s.cfg.DBName,
		"-f", file,
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+s.cfg.DBPassword)

	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("❌ Backup failed: %v: %s", err, out)
		return
	}
	log.Printf("✅ Backup written: %s", file)
}

// buildDailySpec converts "HH:MM" into a five-field cron spec.
func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
