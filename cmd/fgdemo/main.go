// Command fgdemo builds and executes a deferred-shading style frame graph
// against the headless device, then saves the final image as a PNG.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/resource"
)

func main() {
	var (
		width    = flag.Int("width", 800, "image width")
		height   = flag.Int("height", 600, "image height")
		output   = flag.String("output", "frame.png", "output file")
		dot      = flag.Bool("dot", false, "print the dependency graph as DOT and exit")
		parallel = flag.Bool("parallel", false, "execute independent passes concurrently")
		verbose  = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	device := backend.NewHeadlessDevice()
	if err := device.Init(); err != nil {
		log.Fatalf("init device: %v", err)
	}
	defer device.Close()

	table := resource.NewTable(device)
	defer table.Close()

	frame, err := table.CreatePersistent(backend.Descriptor{
		Label:        "frame_color",
		Kind:         backend.KindTexture,
		Width:        uint32(*width),
		Height:       uint32(*height),
		Format:       gputypes.TextureFormatRGBA8Unorm,
		TextureUsage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		log.Fatalf("create frame target: %v", err)
	}

	graph := buildFrame(table, frame, uint32(*width), uint32(*height))

	if *dot {
		fmt.Print(graph.DOT())
		return
	}

	plan, err := graph.Compile()
	if err != nil {
		log.Fatalf("compile: %v", err)
	}
	log.Printf("pass order: %v", plan.PassNames())
	if culled := plan.Culled(); len(culled) > 0 {
		log.Printf("culled: %v", culled)
	}

	exec := framegraph.NewExecutor(table, device)
	var stats framegraph.ExecStats
	if *parallel {
		stats, err = exec.ExecuteParallel(plan, 0)
	} else {
		stats, err = exec.Execute(plan)
	}
	if err != nil {
		log.Fatalf("execute: %v", err)
	}
	log.Printf("executed %d passes, %d barriers, %d allocations (%d pooled)",
		stats.PassesExecuted, stats.Barriers, stats.Allocations, stats.PoolHits)

	img, err := framegraph.Capture(table, device, frame)
	if err != nil {
		log.Fatalf("capture: %v", err)
	}
	if err := framegraph.SavePNG(*output, img); err != nil {
		log.Fatalf("save: %v", err)
	}
	log.Printf("frame saved to %s (%dx%d)", *output, *width, *height)
}

// buildFrame declares a small deferred pipeline: geometry and shadow
// passes feed a lighting pass, a post pass tones the lit image into the
// frame target, and a debug overlay nobody reads gets culled.
func buildFrame(table *resource.Table, frame resource.Handle, w, h uint32) *framegraph.Graph {
	g := framegraph.NewGraph(table)

	texDesc := func(label string) backend.Descriptor {
		return backend.Descriptor{
			Label:        label,
			Kind:         backend.KindTexture,
			Width:        w,
			Height:       h,
			Format:       gputypes.TextureFormatRGBA8Unorm,
			TextureUsage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		}
	}

	gbufferPass := g.AddPass("gbuffer", func(ctx *framegraph.PassContext) error {
		return fillGradient(ctx, 0.9, 0.4, 0.2)
	})
	gbuffer := g.CreateTransient(gbufferPass, texDesc("gbuffer_albedo"))

	shadowPass := g.AddPass("shadow", func(ctx *framegraph.PassContext) error {
		return fillGradient(ctx, 0.2, 0.2, 0.2)
	})
	shadow := g.CreateTransient(shadowPass, texDesc("shadow_map"))

	lightingPass := g.AddPass("lighting", blend)
	g.Read(lightingPass, gbuffer)
	g.Read(lightingPass, shadow)
	lit := g.CreateTransient(lightingPass, texDesc("lit"))

	// Declared but never consumed: exercised only to show culling.
	overlayPass := g.AddPass("debug_overlay", func(ctx *framegraph.PassContext) error {
		return nil
	})
	g.Read(overlayPass, lit)
	g.CreateTransient(overlayPass, texDesc("debug_overlay"))

	postPass := g.AddPass("post", func(ctx *framegraph.PassContext) error {
		return tonemap(ctx, lit, frame)
	})
	g.Read(postPass, lit)
	g.Write(postPass, frame)

	g.SetOutput(frame)
	return g
}

// data resolves a handle to the headless backing bytes.
func data(ctx *framegraph.PassContext, h resource.Handle) (*backend.HeadlessObject, error) {
	res, err := ctx.Resolve(h)
	if err != nil {
		return nil, err
	}
	ho, ok := res.Obj.(*backend.HeadlessObject)
	if !ok {
		return nil, fmt.Errorf("pass %s: resource %q is not headless-backed",
			ctx.PassName(), res.Desc.Label)
	}
	return ho, nil
}

func fillGradient(ctx *framegraph.PassContext, r, g, b float64) error {
	ho, err := createdTarget(ctx)
	if err != nil {
		return err
	}
	w := int(ho.Desc.Width)
	hgt := int(ho.Desc.Height)
	for y := 0; y < hgt; y++ {
		t := float64(y) / float64(hgt)
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			ho.Data[i+0] = clamp255(r * (0.4 + 0.6*t))
			ho.Data[i+1] = clamp255(g * (0.4 + 0.6*t))
			ho.Data[i+2] = clamp255(b * (0.4 + 0.6*t))
			ho.Data[i+3] = 255
		}
	}
	return nil
}

// createdTarget resolves the single resource the pass creates.
func createdTarget(ctx *framegraph.PassContext) (*backend.HeadlessObject, error) {
	h, ok := ctx.Created()
	if !ok {
		return nil, fmt.Errorf("pass %s creates no resource", ctx.PassName())
	}
	return data(ctx, h)
}

func blend(ctx *framegraph.PassContext) error {
	dst, err := createdTarget(ctx)
	if err != nil {
		return err
	}
	srcs := ctx.Reads()
	if len(srcs) != 2 {
		return fmt.Errorf("pass %s: want 2 inputs, have %d", ctx.PassName(), len(srcs))
	}
	a, err := data(ctx, srcs[0])
	if err != nil {
		return err
	}
	b, err := data(ctx, srcs[1])
	if err != nil {
		return err
	}
	for i := range dst.Data {
		dst.Data[i] = uint8((uint16(a.Data[i]) + uint16(b.Data[i])) / 2)
	}
	return nil
}

func tonemap(ctx *framegraph.PassContext, src, dst resource.Handle) error {
	in, err := data(ctx, src)
	if err != nil {
		return err
	}
	out, err := data(ctx, dst)
	if err != nil {
		return err
	}
	for i := 0; i < len(out.Data) && i < len(in.Data); i += 4 {
		out.Data[i+0] = tone(in.Data[i+0])
		out.Data[i+1] = tone(in.Data[i+1])
		out.Data[i+2] = tone(in.Data[i+2])
		out.Data[i+3] = 255
	}
	return nil
}

// tone applies a simple gamma curve.
func tone(v uint8) uint8 {
	return clamp255(math.Pow(float64(v)/255, 0.8) * 255)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
