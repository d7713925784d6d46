package Transport2D

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hydronet/gopinn/InputParameters"
	"github.com/hydronet/gopinn/mlp"
	"github.com/hydronet/gopinn/types"
)

/*
	Checkpoint bundle layout, all integers little endian:

		[0:4]   magic "GPNN"
		[4:8]   format version
		[8:12]  header length h
		[12:12+h] JSON header
		...     float64 sections, in header order
		...     sampler stream state, raw bytes
		[-32:]  sha256 over everything above

	The float64 sections carry the values JSON cannot, exact bit patterns
	and +Inf. The header describes their order and lengths.
*/

var checkpointMagic = [4]byte{'G', 'P', 'N', 'N'}

const checkpointVersion uint32 = 1

type SectionInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type CheckpointHeader struct {
	RunID            string                               `json:"run_id"`
	CreatedAt        time.Time                            `json:"created_at"`
	Iteration        int                                  `json:"iteration"`
	Network          mlp.Descriptor                       `json:"network"`
	Optimizer        string                               `json:"optimizer"`
	OptimizerSteps   int                                  `json:"optimizer_steps"`
	MonitorSeen      int                                  `json:"monitor_seen"`
	MonitorStalls    int                                  `json:"monitor_stalls"`
	MonitorNonFinite int                                  `json:"monitor_non_finite"`
	Sections         []SectionInfo                        `json:"sections"`
	SamplerLen       int                                  `json:"sampler_len"`
	Params           *InputParameters.TransportParameters `json:"params"`
}

// Checkpoint is a fully parsed bundle
type Checkpoint struct {
	Header       CheckpointHeader
	Weights      []float64
	OptState     OptimizerState
	Monitor      MonitorState
	SamplerState []byte
}

// WriteCheckpoint saves everything needed to continue this run with bit
// identical results: parameters, optimizer moments, monitor state, and
// the sampler stream mark from before the live collocation draws
func (c *Transport) WriteCheckpoint(path string) (err error) {
	var (
		opt = c.Opt.Snapshot()
		mon = c.Mon.Snapshot()
	)
	hdr := CheckpointHeader{
		RunID:            c.RunID,
		CreatedAt:        time.Now().UTC(),
		Iteration:        c.iter,
		Network:          c.Net.Describe(),
		Optimizer:        opt.Kind,
		OptimizerSteps:   opt.Steps,
		MonitorSeen:      mon.Seen,
		MonitorStalls:    mon.Stalls,
		MonitorNonFinite: mon.NonFinite,
		SamplerLen:       len(c.streamMark),
		Params:           c.Params,
	}
	sections := [][]float64{c.params}
	hdr.Sections = append(hdr.Sections, SectionInfo{Name: "weights", Count: len(c.params)})
	for i, m := range opt.Moments {
		sections = append(sections, m)
		hdr.Sections = append(hdr.Sections, SectionInfo{
			Name: fmt.Sprintf("opt%d", i), Count: len(m)})
	}
	sections = append(sections, mon.Ring, []float64{mon.Best})
	hdr.Sections = append(hdr.Sections,
		SectionInfo{Name: "monitor_ring", Count: len(mon.Ring)},
		SectionInfo{Name: "monitor_best", Count: 1})

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return &CheckpointError{Path: path, Op: "write", Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &CheckpointError{Path: path, Op: "write", Err: err}
	}
	defer f.Close()

	h := sha256.New()
	w := io.MultiWriter(f, h)
	if err = writeBundle(w, hdrJSON, sections, c.streamMark); err != nil {
		return &CheckpointError{Path: path, Op: "write", Err: err}
	}
	if _, err = f.Write(h.Sum(nil)); err != nil {
		return &CheckpointError{Path: path, Op: "write", Err: err}
	}
	return nil
}

func writeBundle(w io.Writer, hdrJSON []byte, sections [][]float64, samplerState []byte) (err error) {
	if _, err = w.Write(checkpointMagic[:]); err != nil {
		return
	}
	if err = binary.Write(w, binary.LittleEndian, checkpointVersion); err != nil {
		return
	}
	if err = binary.Write(w, binary.LittleEndian, uint32(len(hdrJSON))); err != nil {
		return
	}
	if _, err = w.Write(hdrJSON); err != nil {
		return
	}
	for _, s := range sections {
		if err = binary.Write(w, binary.LittleEndian, s); err != nil {
			return
		}
	}
	_, err = w.Write(samplerState)
	return
}

// ReadCheckpoint loads and verifies a bundle
func ReadCheckpoint(path string) (ck *Checkpoint, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CheckpointError{Path: path, Op: "read", Err: err}
	}
	if ck, err = parseBundle(data); err != nil {
		return nil, &CheckpointError{Path: path, Op: "read", Err: err}
	}
	return
}

func parseBundle(data []byte) (ck *Checkpoint, err error) {
	if len(data) < 12+sha256.Size {
		return nil, fmt.Errorf("bundle of %d bytes is too short", len(data))
	}
	var (
		body = data[:len(data)-sha256.Size]
		sum  = sha256.Sum256(body)
	)
	if !bytes.Equal(sum[:], data[len(data)-sha256.Size:]) {
		return nil, fmt.Errorf("sha256 mismatch, bundle is corrupt")
	}
	if !bytes.Equal(body[0:4], checkpointMagic[:]) {
		return nil, fmt.Errorf("bad magic %q", body[0:4])
	}
	var (
		version = binary.LittleEndian.Uint32(body[4:8])
		hdrLen  = int(binary.LittleEndian.Uint32(body[8:12]))
	)
	if version != checkpointVersion {
		return nil, fmt.Errorf("unsupported bundle version %d", version)
	}
	if 12+hdrLen > len(body) {
		return nil, fmt.Errorf("header length %d overruns the bundle", hdrLen)
	}
	ck = &Checkpoint{}
	if err = json.Unmarshal(body[12:12+hdrLen], &ck.Header); err != nil {
		return nil, fmt.Errorf("header: %s", err)
	}
	r := bytes.NewReader(body[12+hdrLen:])
	read := make(map[string][]float64, len(ck.Header.Sections))
	for _, si := range ck.Header.Sections {
		s := make([]float64, si.Count)
		if err = binary.Read(r, binary.LittleEndian, s); err != nil {
			return nil, fmt.Errorf("section %s: %s", si.Name, err)
		}
		read[si.Name] = s
	}
	ck.SamplerState = make([]byte, ck.Header.SamplerLen)
	if _, err = io.ReadFull(r, ck.SamplerState); err != nil {
		return nil, fmt.Errorf("sampler state: %s", err)
	}

	ck.Weights = read["weights"]
	if ck.Weights == nil {
		return nil, fmt.Errorf("bundle has no weights section")
	}
	ck.OptState = OptimizerState{Kind: ck.Header.Optimizer, Steps: ck.Header.OptimizerSteps}
	for i := 0; ; i++ {
		m, present := read[fmt.Sprintf("opt%d", i)]
		if !present {
			break
		}
		ck.OptState.Moments = append(ck.OptState.Moments, m)
	}
	best := read["monitor_best"]
	if len(best) != 1 {
		return nil, fmt.Errorf("bundle has no monitor_best section")
	}
	ck.Monitor = MonitorState{
		Ring:      read["monitor_ring"],
		Best:      best[0],
		Seen:      ck.Header.MonitorSeen,
		Stalls:    ck.Header.MonitorStalls,
		NonFinite: ck.Header.MonitorNonFinite,
	}
	return
}

// ResumeTransport rebuilds a solver from a checkpoint and replays the
// collocation draws the interrupted run was training on, so continuing
// produces the same sequence as a run that was never stopped
func ResumeTransport(path string, verbose bool) (c *Transport, err error) {
	ck, err := ReadCheckpoint(path)
	if err != nil {
		return
	}
	if ck.Header.Params == nil {
		return nil, &CheckpointError{Path: path, Op: "read",
			Err: fmt.Errorf("bundle carries no run parameters")}
	}
	if c, err = NewTransport(ck.Header.Params, verbose); err != nil {
		return
	}
	c.RunID = ck.Header.RunID
	if err = c.Net.SetParameters(ck.Weights); err != nil {
		return nil, &CheckpointError{Path: path, Op: "read", Err: err}
	}
	copy(c.params, ck.Weights)
	if err = c.Opt.Restore(ck.OptState); err != nil {
		return nil, &CheckpointError{Path: path, Op: "read", Err: err}
	}
	if err = c.Mon.Restore(ck.Monitor); err != nil {
		return nil, &CheckpointError{Path: path, Op: "read", Err: err}
	}
	if len(ck.SamplerState) > 0 {
		if err = c.Smp.RestoreState(ck.SamplerState); err != nil {
			return nil, &CheckpointError{Path: path, Op: "read", Err: err}
		}
	}
	if err = c.refreshSets(); err != nil {
		return nil, err
	}
	c.iter = ck.Header.Iteration
	c.State = types.Training
	return
}
