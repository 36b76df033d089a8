package storageclass

import "testing"

func TestIsNetworkPath(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"smb://nas/share/b.jpg", true},
		{"nfs://host/export/file", true},
		{"afp://host/share", true},
		{"cifs://host/share", true},
		{"//host/share/file.jpg", true},
		{"/mnt/media/file.jpg", true},
		{"/media/usb0/file.jpg", true},
		{"/Volumes/Backup Drive/file.jpg", true},
		{"/Volicrosoft HD/file.jpg", false},
		{"/Volumes/Macintosh HD/Users/a/file.jpg", false},
		{"/Volumes/External SSD/file.jpg", false},
		{"/Volumes/System/file.jpg", false},
		{"/src/a.jpg", false},
		{"/Users/me/Pictures/a.jpg", false},
	}

	for _, c := range cases {
		if got := IsNetworkPath(c.path); got != c.want {
			t.Errorf("IsNetworkPath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestGetStorageConfig(t *testing.T) {
	local := GetStorageConfig("/src/a.jpg")
	if local.BufferSize != 64*1024 || local.Concurrency != 22 || local.OperationDelay != 0 {
		t.Errorf("local config = %+v, want {65536 22 0}", local)
	}

	network := GetStorageConfig("smb://nas/share/b.jpg")
	if network.BufferSize != 1024*1024 || network.Concurrency != 1 || network.OperationDelay.Milliseconds() != 50 {
		t.Errorf("network config = %+v, want {1048576 1 50ms}", network)
	}
}
