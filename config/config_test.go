package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

const testConf = `
[server]
ListenIP = 127.0.0.1
ListenPort = 8080
Secret = s3cret
Origin = *
Mode = 2

[redis]
IP = 192.168.0.127
Port = 6379
Password = 123456

[peer]
MaxMessageSize = 4096
PongWait = 60
`

// point the package at a scratch directory so tests leave no state in
// the working tree
func stubDirs(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "redchat-config")
	if err != nil {
		t.Fatal(err)
	}
	oldData, oldID := dataDir, defaultIDConfigFile
	dataDir = filepath.Join(dir, "data")
	defaultIDConfigFile = filepath.Join(dataDir, defaultIDName)
	return dir, func() {
		dataDir, defaultIDConfigFile = oldData, oldID
		os.RemoveAll(dir)
	}
}

func Test_loadConfig(t *testing.T) {
	dir, cleanup := stubDirs(t)
	defer cleanup()
	file := filepath.Join(dir, defaultConfigName)
	if err := ioutil.WriteFile(file, []byte(testConf), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := loadConfig(file)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if got.Server.ListenPort != 8080 || got.Server.Mode != ModeCluster {
		t.Errorf("loadConfig() server = %+v", got.Server)
	}
	if got.Redis.IP != "192.168.0.127" || got.Redis.Port != 6379 {
		t.Errorf("loadConfig() redis = %+v", got.Redis)
	}
	if got.Peer.MaxMessageSize != 4096 {
		t.Errorf("loadConfig() peer = %+v", got.Peer)
	}
	// defaults hold for keys the file omits
	if got.Server.DefaultRoomName != defaultRoomName {
		t.Errorf("DefaultRoomName = %v, want %v", got.Server.DefaultRoomName, defaultRoomName)
	}
	if got.ServerID == 0 {
		t.Error("ServerID not assigned")
	}
}

func TestBuildServerID_Stable(t *testing.T) {
	_, cleanup := stubDirs(t)
	defer cleanup()
	if err := os.MkdirAll(dataDir, os.ModePerm); err != nil {
		t.Fatal(err)
	}

	first, err := BuildServerID()
	if err != nil {
		t.Fatal(err)
	}
	second, err := BuildServerID()
	if err != nil {
		t.Fatal(err)
	}
	// the id is cached in the lock file and survives restarts
	if first != second {
		t.Errorf("BuildServerID() = %v then %v, want stable", first, second)
	}
}
