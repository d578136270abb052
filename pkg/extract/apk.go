package extract

import (
	"github.com/sdejongh/apkdiff/pkg/format"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/toolexec"
)

// DefaultAPKTool is the apk-tools executable name
const DefaultAPKTool = "apk"

// NewAPKv2Strategy unpacks the gzip-concatenated tar segments natively.
// Some packagers add an extra compression layer, so the nested form is
// tried first and the plain form second.
func NewAPKv2Strategy(logger logging.Logger) *Strategy {
	untar := &Untar{Logger: logger}
	return &Strategy{
		Variant: format.APKv2,
		Logger:  logger,
		Methods: []Method{
			&Pipeline{Layers: []Layer{Gunzip{}, Gunzip{}}, Unpack: untar},
			&Pipeline{Layers: []Layer{Gunzip{}}, Unpack: untar},
		},
	}
}

// NewAPKv3Strategy delegates to "apk extract", which understands ADB
func NewAPKv3Strategy(runner toolexec.Runner, tool string, logger logging.Logger) *Strategy {
	if tool == "" {
		tool = DefaultAPKTool
	}
	return &Strategy{
		Variant: format.APKv3,
		Logger:  logger,
		Methods: []Method{
			&ToolMethod{
				Label:  "apk-extract",
				Runner: runner,
				Tool:   tool,
				Args: func(inputPath, dir string) []string {
					return []string{"--allow-untrusted", "extract", "--destination", dir, inputPath}
				},
			},
		},
	}
}
