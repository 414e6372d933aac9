package commands

const (
	_etc = "/usr/local/etc/com.github.eduaccess/gdrive-access-sync"
	_var = "/usr/local/var/com.github.eduaccess/gdrive-access-sync"

	DEFAULT_WORKDIR = _var
	DEFAULT_CONFIG  = _etc + "/gdrive-access-sync.yaml"
	DEFAULT_MOCK    = _etc + "/mock-data.json"
)
