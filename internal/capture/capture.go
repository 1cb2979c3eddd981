package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/fogleman/fauxgl"
	"go.uber.org/zap"

	"print-studio/internal/studio"
	"print-studio/internal/views"
)

const (
	// nearPullback keeps the near plane this many bounding radii in front
	// of the scene so depth precision is spent where the model is.
	nearPullback = 2
	// farPushout extends the far plane past the eye distance. The ground
	// matches the backdrop color, so clipping its far reaches is
	// invisible.
	farPushout = 4
)

// Image is one captured view, PNG encoded. Ownership passes to the caller.
type Image struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// RenderError reports an invocation where not a single view rendered.
// Individual view failures are tolerated as long as one frame comes back.
type RenderError struct {
	Attempted int
	Failures  []string
}

func (e *RenderError) Error() string {
	if e.Attempted == 0 {
		return "capture: no views to render"
	}
	msg := fmt.Sprintf("capture: all %d views failed", e.Attempted)
	if len(e.Failures) > 0 {
		msg += ": " + strings.Join(e.Failures, "; ")
	}
	return msg
}

// Render captures the planned views in order. Views that fail validation or
// rasterization are logged and skipped; if none succeed the whole render
// fails with RenderError.
func (s *Session) Render(plan []views.ViewSpec) ([]Image, error) {
	if s.released {
		return nil, errors.New("capture: session already released")
	}
	if len(plan) == 0 {
		return nil, &RenderError{}
	}

	images := make([]Image, 0, len(plan))
	var failures []string
	for _, view := range plan {
		data, err := s.renderView(view)
		if err != nil {
			s.log.Warn("capture: view skipped",
				zap.String("view", view.Name),
				zap.Error(err))
			failures = append(failures, view.Name+": "+err.Error())
			continue
		}
		s.log.Debug("capture: view rendered",
			zap.String("view", view.Name),
			zap.Int("bytes", len(data)))
		images = append(images, Image{Name: view.Name, Data: data})
	}
	if len(images) == 0 {
		return nil, &RenderError{Attempted: len(plan), Failures: failures}
	}
	return images, nil
}

// renderView draws one frame. The rasterizer works on shared buffers, so a
// panic there is contained and reported as this view's failure.
func (s *Session) renderView(view views.ViewSpec) (data []byte, err error) {
	if err := validateView(view); err != nil {
		return nil, err
	}
	if s.scene.Model == nil {
		return nil, errors.New("scene geometry already released")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rasterizer panic: %v", r)
		}
	}()

	eye := fauxgl.V(
		view.Position[0]*view.Zoom,
		view.Position[1]*view.Zoom,
		view.Position[2]*view.Zoom,
	)
	up := fauxgl.V(view.Up[0], view.Up[1], view.Up[2])
	dist := eye.Length()
	near := math.Max(dist-nearPullback*s.scene.Radius, dist*0.01)
	far := dist + farPushout*s.scene.Radius
	aspect := float64(s.opts.Width) / float64(s.opts.Height)
	matrix := fauxgl.LookAt(eye, fauxgl.V(0, 0, 0), up).Perspective(s.opts.FOVDeg, aspect, near, far)

	s.ctx.ClearColorBufferWith(s.scene.Background)
	s.ctx.ClearDepthBuffer()

	// The catcher only makes sense from above; from underneath it would
	// hide the model.
	if s.scene.Ground != nil && eye.Y > s.scene.GroundY {
		s.ctx.Shader = studio.NewGroundShader(matrix, s.scene.Background, s.scene.Shadow)
		s.ctx.DrawMesh(s.scene.Ground)
	}
	s.ctx.Shader = studio.NewStudioShader(matrix, eye, s.scene.Lights)
	s.ctx.DrawMesh(s.scene.Model)

	frame := s.ctx.Image()
	if s.opts.Supersample > 1 {
		frame = downsample(frame, s.opts.Width, s.opts.Height)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// downsample shrinks the supersampled frame to the output size.
func downsample(frame image.Image, width, height int) image.Image {
	return transform.Resize(frame, width, height, transform.Lanczos)
}

// validateView rejects camera poses the projection cannot represent before
// they reach the rasterizer.
func validateView(v views.ViewSpec) error {
	for _, f := range []float64{
		v.Position[0], v.Position[1], v.Position[2],
		v.Up[0], v.Up[1], v.Up[2],
		v.Zoom,
	} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New("non-finite camera parameter")
		}
	}
	if v.Zoom <= 0 {
		return errors.New("zoom must be positive")
	}
	eye := fauxgl.V(v.Position[0], v.Position[1], v.Position[2])
	if eye.Length() == 0 {
		return errors.New("eye sits at the scene origin")
	}
	up := fauxgl.V(v.Up[0], v.Up[1], v.Up[2])
	if up.Length() == 0 {
		return errors.New("zero up vector")
	}
	forward := eye.Normalize()
	if forward.Cross(up.Normalize()).Length() < 1e-9 {
		return errors.New("up vector parallel to view direction")
	}
	return nil
}
