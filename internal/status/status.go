package status

import (
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is the payload served at /api/status.
type Snapshot struct {
	UptimeSeconds    int64   `json:"uptimeSeconds"`
	ActiveSearches   int     `json:"activeSearches"`
	ConnectedClients int     `json:"connectedClients"`
	CPUPercent       float64 `json:"cpuPercent"`
	MemUsedPercent   float64 `json:"memUsedPercent"`
	MemUsedBytes     uint64  `json:"memUsedBytes"`
}

// Collector assembles status snapshots. Host metrics come from gopsutil;
// a metrics read failure zeroes that field rather than failing the
// request.
type Collector struct {
	startedAt time.Time
}

func NewCollector() *Collector {
	return &Collector{startedAt: time.Now()}
}

func (c *Collector) Snapshot(activeSearches, connectedClients int) Snapshot {
	s := Snapshot{
		UptimeSeconds:    int64(time.Since(c.startedAt).Seconds()),
		ActiveSearches:   activeSearches,
		ConnectedClients: connectedClients,
	}

	if percents, err := cpu.Percent(0, false); err != nil {
		log.Printf("status: cpu sample: %v", err)
	} else if len(percents) > 0 {
		s.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Printf("status: memory sample: %v", err)
	} else {
		s.MemUsedPercent = vm.UsedPercent
		s.MemUsedBytes = vm.Used
	}

	return s
}
