package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/Arri0/AMI/audio"
	"github.com/Arri0/AMI/command"
	"github.com/Arri0/AMI/config"
	"github.com/Arri0/AMI/midi"
	"github.com/Arri0/AMI/render"
	"github.com/Arri0/AMI/sequencer"
)

const numInputSlots = 16

// snapshot bundles the whole instrument state for save and restore.
type snapshot struct {
	Graph     json.RawMessage `json:"graph"`
	Sequencer json.RawMessage `json:"sequencer"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ami:", err)
		os.Exit(1)
	}
}

func run() error {
	sampleRate := flag.Int("sample-rate", 0, "override configured sample rate")
	bufferSize := flag.Int("buffer-size", 0, "override configured buffer size")
	snapshotPath := flag.String("snapshot", "", "override snapshot file path")
	listPorts := flag.Bool("list-ports", false, "list MIDI input ports and exit")
	flag.Parse()

	if *listPorts {
		for _, name := range midi.AvailablePorts() {
			fmt.Println(name)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *sampleRate > 0 {
		cfg.Audio.SampleRate = *sampleRate
	}
	if *bufferSize > 0 {
		cfg.Audio.BufferSize = *bufferSize
	}
	if *snapshotPath != "" {
		cfg.Paths.SnapshotPath = *snapshotPath
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	output, err := audio.Connect(cfg.Audio.SampleRate, cfg.Audio.BufferSize, log)
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	defer output.Close()

	feed := midi.NewFeed()
	graphFeed := feed.Subscribe(256)
	reader := midi.NewReader(feed, numInputSlots, log)
	defer reader.Close()
	for i, input := range cfg.AutoConnectInputs() {
		if i >= numInputSlots {
			break
		}
		if err := reader.Connect(i, input.PortName); err != nil {
			log.Warn("could not autoconnect MIDI input",
				zap.String("port", input.PortName), zap.Error(err))
		}
	}

	registry := render.NewRegistry()
	render.RegisterSoundFont(registry)

	broadcaster := command.NewBroadcaster()
	graph := render.NewGraph(registry, graphFeed, broadcaster, 64, 256, log)
	graph.SetSampleRate(output.SampleRate())

	machine := sequencer.NewMachine(graph.Routed(), 64, log)

	statePath, err := cfg.SnapshotPath()
	if err != nil {
		return fmt.Errorf("snapshot path: %w", err)
	}
	restoreSnapshot(statePath, graph, machine, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	machineDone := make(chan struct{})
	go func() {
		defer close(machineDone)
		machine.Run(ctx)
	}()
	go watchUpdates(ctx, broadcaster, machine, log)
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		audio.RunRenderer(ctx, output, func(left, right []float32) {
			graph.ControlTick()
			graph.AudioTick(left, right)
		})
	}()

	log.Info("instrument running", zap.Strings("midiPorts", reader.ConnectedNames()))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	log.Info("shutting down", zap.Int64("audioStalls", output.Stalls()))
	cancel()
	// Graph and machine state are confined to their goroutines while
	// running; join both before serializing.
	<-renderDone
	<-machineDone
	saveSnapshot(statePath, graph, machine, log)
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = parsed
	}
	return cfg.Build()
}

// watchUpdates logs broadcast state changes and keeps the sequencer's
// voice targets in sync with node removals.
func watchUpdates(ctx context.Context, broadcaster *command.Broadcaster, machine *sequencer.Machine, log *zap.Logger) {
	updates, cancel := broadcaster.Subscribe(64)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			log.Debug("graph update",
				zap.Int("kind", int(update.Kind)),
				zap.Int("id", update.ID))
			if update.Kind == command.UpdateRemoveNode {
				req := sequencer.Request{Kind: sequencer.RetargetAfterRemove{RemovedID: update.ID}}
				select {
				case machine.Requests() <- req:
				default:
					log.Warn("sequencer queue full, retarget dropped", zap.Int("id", update.ID))
				}
			}
		}
	}
}

func restoreSnapshot(path string, graph *render.Graph, machine *sequencer.Machine, log *zap.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("could not read snapshot", zap.String("path", path), zap.Error(err))
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn("could not parse snapshot", zap.String("path", path), zap.Error(err))
		return
	}
	if len(snap.Graph) > 0 {
		if err := graph.Deserialize(snap.Graph); err != nil {
			log.Warn("could not restore graph", zap.Error(err))
		}
	}
	if len(snap.Sequencer) > 0 {
		if err := machine.Deserialize(snap.Sequencer); err != nil {
			log.Warn("could not restore sequencer", zap.Error(err))
		}
	}
	log.Info("snapshot restored", zap.String("path", path), zap.Int("nodes", graph.NumNodes()))
}

func saveSnapshot(path string, graph *render.Graph, machine *sequencer.Machine, log *zap.Logger) {
	graphState, err := graph.Serialize()
	if err != nil {
		log.Warn("could not serialize graph", zap.Error(err))
		return
	}
	machineState, err := machine.Serialize()
	if err != nil {
		log.Warn("could not serialize sequencer", zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(snapshot{Graph: graphState, Sequencer: machineState}, "", "  ")
	if err != nil {
		log.Warn("could not marshal snapshot", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warn("could not create snapshot dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Warn("could not write snapshot", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("snapshot saved", zap.String("path", path))
}
