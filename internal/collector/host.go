package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/host"
)

// NodeInfo identifies the machine running the evaluation passes.
type NodeInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernelVersion"`
	HostID        string `json:"hostId"`
	Uptime        uint64 `json:"uptime"`
}

// CollectNodeInfo reads host identity via gopsutil.
func CollectNodeInfo(ctx context.Context) (NodeInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return NodeInfo{}, fmt.Errorf("failed to get host info: %w", err)
	}
	return NodeInfo{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		HostID:        info.HostID,
		Uptime:        info.Uptime,
	}, nil
}
