package graphics

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/glog"
)

// GLBackend renders through a raw OpenGL 3.3 context (glfw for the window
// and event pump, go-gl/gl for the draw calls) instead of Ebitengine. It
// exists to prove the Backend interface is a real seam: nothing in
// internal/app or cmd/gones needs to know which backend it's talking to.
type GLBackend struct {
	initialized bool
}

func NewGLBackend() Backend { return &GLBackend{} }

func (b *GLBackend) Initialize(config Config) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("gl backend: glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	b.initialized = true
	return nil
}

func (b *GLBackend) CreateWindow(title string, width, height int) (Window, error) {
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gl backend: creating window: %w", err)
	}
	win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl backend: gl init: %w", err)
	}
	program, err := newGLProgram()
	if err != nil {
		return nil, err
	}
	var texture uint32
	gl.GenTextures(1, &texture)
	return &GLWindow{win: win, program: program, texture: texture, width: width, height: height}, nil
}

func (b *GLBackend) Cleanup() error {
	if b.initialized {
		glfw.Terminate()
	}
	return nil
}

func (b *GLBackend) IsHeadless() bool { return false }
func (b *GLBackend) GetName() string  { return "opengl" }

// GLWindow renders the 256x240 NES frame buffer as a texture on a
// full-screen quad each frame.
type GLWindow struct {
	win     *glfw.Window
	program uint32
	texture uint32
	width, height int
}

func (w *GLWindow) SetTitle(title string)          { w.win.SetTitle(title) }
func (w *GLWindow) GetSize() (int, int)             { return w.win.GetSize() }
func (w *GLWindow) ShouldClose() bool               { return w.win.ShouldClose() }
func (w *GLWindow) SwapBuffers()                    { w.win.SwapBuffers() }

func (w *GLWindow) PollEvents() []InputEvent {
	glfw.PollEvents()
	var events []InputEvent
	for key, button := range glKeymap {
		if w.win.GetKey(key) == glfw.Press {
			events = append(events, InputEvent{Type: InputEventTypeButton, Button: button, Pressed: true})
		}
	}
	if w.win.ShouldClose() {
		events = append(events, InputEvent{Type: InputEventTypeQuit})
	}
	return events
}

func (w *GLWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	gl.UseProgram(w.program)
	gl.BindTexture(gl.TEXTURE_2D, w.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, 256, 240, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(frameBuffer[:]))
	drawFullscreenQuad(w.program)
	return nil
}

func (w *GLWindow) Cleanup() error {
	gl.DeleteTextures(1, &w.texture)
	w.win.Destroy()
	return nil
}

var glKeymap = map[glfw.Key]Button{
	glfw.KeyZ:     ButtonA,
	glfw.KeyX:     ButtonB,
	glfw.KeyEnter: ButtonStart,
	glfw.KeyRightShift: ButtonSelect,
	glfw.KeyUp:    ButtonUp,
	glfw.KeyDown:  ButtonDown,
	glfw.KeyLeft:  ButtonLeft,
	glfw.KeyRight: ButtonRight,
}

const glVertexShaderSrc = `
#version 330
in vec2 position;
in vec2 uv;
out vec2 vuv;
void main() {
	gl_Position = vec4(position, 0.0, 1.0);
	vuv = uv;
}
` + "\x00"

const glFragmentShaderSrc = `
#version 330
in vec2 vuv;
out vec4 color;
uniform sampler2D tex;
void main() {
	color = texture(tex, vuv);
}
` + "\x00"

func compileGLShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
		log := strings.Repeat("\x00", int(length+1))
		gl.GetShaderInfoLog(shader, length, nil, gl.Str(log))
		return 0, fmt.Errorf("gl backend: compiling shader: %s", log)
	}
	return shader, nil
}

func newGLProgram() (uint32, error) {
	vs, err := compileGLShader(glVertexShaderSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := compileGLShader(glFragmentShaderSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
		log := strings.Repeat("\x00", int(length+1))
		gl.GetProgramInfoLog(program, length, nil, gl.Str(log))
		return 0, fmt.Errorf("gl backend: linking program: %s", log)
	}
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	glog.V(1).Infof("gl backend: compiled program %d", program)
	return program, nil
}

var glQuadPositions = []float32{1, 1, -1, 1, -1, -1, 1, -1}
var glQuadUVs = []float32{1, 0, 0, 0, 0, 1, 1, 1}

func drawFullscreenQuad(program uint32) {
	posLoc := uint32(gl.GetAttribLocation(program, gl.Str("position\x00")))
	uvLoc := uint32(gl.GetAttribLocation(program, gl.Str("uv\x00")))
	gl.EnableVertexAttribArray(posLoc)
	gl.EnableVertexAttribArray(uvLoc)
	gl.VertexAttribPointer(posLoc, 2, gl.FLOAT, false, 0, gl.Ptr(glQuadPositions))
	gl.VertexAttribPointer(uvLoc, 2, gl.FLOAT, false, 0, gl.Ptr(glQuadUVs))
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
}
