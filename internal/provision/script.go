package provision

import (
	"bytes"
	"fmt"
	"path"
	"text/template"
)

// Remote layout: everything for one deployment lives under
// ~/deployd/<api_name>/ so teardown can remove it wholesale.
const remoteBaseDir = "deployd"

func remoteDeployDir(apiName string) string {
	return path.Join(remoteBaseDir, apiName)
}

var launchTmpl = template.Must(template.New("launch").Parse(`#!/usr/bin/env bash
set -euo pipefail
APP_DIR="$HOME/{{.Dir}}"
cd "$APP_DIR"
if [ -f run.pid ] && kill -0 "$(cat run.pid)" 2>/dev/null; then
  exit 0
fi
nohup python3 -m deployd_runtime \
  --model "{{.Source}}" \
  --port {{.Port}} \
  --api-name "{{.APIName}}" \
  --key-digest "{{.KeyDigest}}" \
  >run.log 2>&1 &
echo $! > run.pid
`))

var stopTmpl = template.Must(template.New("stop").Parse(`#!/usr/bin/env bash
set -uo pipefail
APP_DIR="$HOME/{{.Dir}}"
cd "$APP_DIR" 2>/dev/null || exit 0
if [ -f run.pid ]; then
  kill "$(cat run.pid)" 2>/dev/null || true
  rm -f run.pid
fi
`))

type scriptData struct {
	Dir       string
	Source    string
	Port      int
	APIName   string
	KeyDigest string
}

// renderLaunchScript builds the script that starts the model runtime.
func renderLaunchScript(spec Spec) ([]byte, error) {
	var buf bytes.Buffer
	err := launchTmpl.Execute(&buf, scriptData{
		Dir:       remoteDeployDir(spec.APIName),
		Source:    spec.Source,
		Port:      spec.Port,
		APIName:   spec.APIName,
		KeyDigest: spec.KeyDigest,
	})
	if err != nil {
		return nil, fmt.Errorf("render launch script: %w", err)
	}
	return buf.Bytes(), nil
}

// renderStopScript builds the script that stops the model runtime.
func renderStopScript(apiName string) ([]byte, error) {
	var buf bytes.Buffer
	if err := stopTmpl.Execute(&buf, scriptData{Dir: remoteDeployDir(apiName)}); err != nil {
		return nil, fmt.Errorf("render stop script: %w", err)
	}
	return buf.Bytes(), nil
}
