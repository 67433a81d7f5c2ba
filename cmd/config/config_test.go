package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"ledgerengine/internal/testutil"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir("../.."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.Storage.Path != "data/ledger" {
		t.Fatalf("unexpected storage path: %s", AppConfig.Storage.Path)
	}
	if AppConfig.Genesis.Symbols["MFK"] != "MyFirstKoin" {
		t.Fatalf("unexpected symbol table: %v", AppConfig.Genesis.Symbols)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir("../.."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("bootstrap")
	if !AppConfig.Consensus.Blockchain {
		t.Fatalf("expected blockchain mode override to be true")
	}
	if AppConfig.Logging.Level != "debug" {
		t.Fatalf("expected logging level override to be debug")
	}
}

func TestLoadConfigSandbox(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	data := []byte("storage:\n  path: /tmp/sandbox-ledger\n")
	if err := sb.WriteFile("config/default.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.Storage.Path != "/tmp/sandbox-ledger" {
		t.Fatalf("expected sandbox storage path, got %s", AppConfig.Storage.Path)
	}
}
