// Package monitoring turns a scheduler into a small HTTP server that exposes
// its systems, resources, and process health for external inspection.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling endpoints.
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/schedlab/resched/sched"
)

// EnvMonitorPort is the environment variable that sets the monitor port.
const EnvMonitorPort = "RESCHED_MONITOR_PORT"

// Monitor exposes one scheduler over HTTP.
type Monitor struct {
	scheduler   *sched.Scheduler
	portNumber  int
	openBrowser bool
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	m := &Monitor{}

	// A .env file is optional; environment variables win either way.
	_ = godotenv.Load()

	if port := os.Getenv(EnvMonitorPort); port != "" {
		portNumber, err := strconv.Atoi(port)
		if err == nil {
			m.portNumber = portNumber
		}
	}

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor URL in the default browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterScheduler registers the scheduler to be monitored.
func (m *Monitor) RegisterScheduler(s *sched.Scheduler) {
	m.scheduler = s
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	r := mux.NewRouter()
	r.HandleFunc("/api/scheduler", m.schedulerSummary)
	r.HandleFunc("/api/systems", m.listSystems)
	r.HandleFunc("/api/resources", m.listResourceTypes)
	r.HandleFunc("/api/resource/{name}", m.resourceDetails)
	r.HandleFunc("/api/run", m.runRound)
	r.HandleFunc("/api/machine", m.machineStatus)
	r.HandleFunc("/api/profile", m.collectProfile)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring scheduler with %s\n", url)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()

	if m.openBrowser {
		_ = browser.OpenURL(url + "/api/scheduler")
	}

	return url
}

type schedulerRsp struct {
	ID           string `json:"id"`
	Rounds       int    `json:"rounds"`
	NumSystems   int    `json:"num_systems"`
	NumResources int    `json:"num_resources"`
}

func (m *Monitor) schedulerSummary(w http.ResponseWriter, _ *http.Request) {
	rsp := schedulerRsp{
		ID:           m.scheduler.ID(),
		Rounds:       m.scheduler.Rounds(),
		NumSystems:   len(m.scheduler.Systems()),
		NumResources: len(m.scheduler.ResourceTypes()),
	}

	writeJSON(w, rsp)
}

type systemRsp struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Accesses []string `json:"accesses"`
}

func (m *Monitor) listSystems(w http.ResponseWriter, _ *http.Request) {
	systems := m.scheduler.Systems()
	rsp := make([]systemRsp, 0, len(systems))

	for i, sys := range systems {
		decls := sys.Accesses()
		accesses := make([]string, len(decls))
		for j, d := range decls {
			accesses[j] = d.String()
		}

		rsp = append(rsp, systemRsp{Index: i, Name: sys.Name(), Accesses: accesses})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listResourceTypes(w http.ResponseWriter, _ *http.Request) {
	types := m.scheduler.ResourceTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}

	writeJSON(w, names)
}

func (m *Monitor) resourceDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	for _, t := range m.scheduler.ResourceTypes() {
		if t.String() != name {
			continue
		}

		value, ok := m.scheduler.Resource(t)
		if !ok {
			break
		}

		serializer := goseth.NewSerializer()
		serializer.SetRoot(value)
		serializer.SetMaxDepth(2)
		err := serializer.Serialize(w)
		dieOnErr(err)

		return
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Resource not found"))
	dieOnErr(err)
}

type runRsp struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (m *Monitor) runRound(w http.ResponseWriter, _ *http.Request) {
	err := m.scheduler.Run()
	if err != nil {
		writeJSON(w, runRsp{OK: false, Error: err.Error()})
		return
	}

	writeJSON(w, runRsp{OK: true})
}

type machineRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) machineStatus(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, machineRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
