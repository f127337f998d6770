package main

import (
	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
)

type profileLogger struct{}

func (profileLogger) Infof(_ string, _ ...interface{})  {}
func (profileLogger) Debugf(_ string, _ ...interface{}) {}
func (profileLogger) Errorf(format string, args ...interface{}) {
	logs.Errorf("pyroscope: "+format, args...)
}

// startProfiler starts continuous profiling when addr is set. The returned
// stop function is never nil.
func startProfiler(addr, base string) func() {
	if addr == "" {
		return func() {}
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: "portwatch",
		ServerAddress:   addr,
		Tags: map[string]string{
			"base": base,
		},
		Logger: profileLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		logs.Errorf("start pyroscope, err: %+v", err)
		return func() {}
	}

	logs.Infof("pyroscope profiling to %s", addr)
	return func() {
		_ = profiler.Stop()
	}
}
