package gpucore

// Device creates backend shader and pipeline objects.
//
// Devices are used from the thread that owns the graphics context. A failed
// creation returns a nil object and a non-nil error.
type Device interface {
	// Backend returns the API family of the device.
	Backend() Backend

	// Features returns optional capabilities.
	Features() Features

	// CreateShader compiles a single shader stage.
	CreateShader(ci *ShaderCreateInfo) (ShaderHandle, error)

	// CreateGraphicsPipeline creates a graphics pipeline object.
	CreateGraphicsPipeline(ci *GraphicsPipelineCreateInfo) (Pipeline, error)

	// CreateComputePipeline creates a compute pipeline object.
	CreateComputePipeline(ci *ComputePipelineCreateInfo) (Pipeline, error)

	// CreatePipelineCache creates a binary pipeline cache seeded with data.
	// Data that the backend cannot interpret is ignored.
	CreatePipelineCache(data []byte) (PipelineCache, error)
}

// ShaderCreateInfo describes a shader stage to compile.
type ShaderCreateInfo struct {
	Name       string
	Stage      ShaderStage
	Source     string
	EntryPoint string
}

// ShaderHandle is a compiled shader stage.
type ShaderHandle interface {
	Name() string
	Stage() ShaderStage

	// Reflection returns the resources and vertex inputs of this stage.
	// Link-time reflection backends may return a reflection without
	// vertex input slots.
	Reflection() *ShaderReflection

	Release()
}

// LinkedProgram is the result of linking shader stages on a link-time
// reflection backend.
type LinkedProgram interface {
	// VertexAttributes returns the vertex inputs with their linked slots.
	VertexAttributes() []VertexShaderAttribute

	// Resources returns every resource of the linked program.
	Resources() []ShaderResource
}

// Pipeline is a backend pipeline object.
type Pipeline interface {
	Name() string
	CreateShaderResourceBinding() (ShaderResourceBinding, error)
	Release()
}

// ShaderResourceBinding binds resources to the variables of a pipeline.
type ShaderResourceBinding interface {
	// Variable returns the variable with the given name visible in any of
	// stages, or nil.
	Variable(stages ShaderStage, name string) ShaderVariable
	Release()
}

// ShaderVariable is a bindable shader variable.
type ShaderVariable interface {
	Name() string
	Set(resource any)
	Get() any
}

// PipelineCache is a backend binary cache of compiled shader and pipeline
// data.
type PipelineCache interface {
	// Data serializes the current cache contents.
	Data() ([]byte, error)
	Release()
}

// ShaderResourceKind classifies a shader resource.
type ShaderResourceKind uint8

// Resource kinds.
const (
	ResourceUniformBuffer ShaderResourceKind = iota
	ResourceStorageBuffer
	ResourceTexture
	ResourceStorageTexture
	ResourceSampler
)

// IsSampled reports whether the resource takes part in sampler assignment.
func (k ShaderResourceKind) IsSampled() bool {
	return k == ResourceTexture || k == ResourceSampler
}

// ShaderResource is one reflected shader resource.
type ShaderResource struct {
	Name     string
	Kind     ShaderResourceKind
	Group    uint32
	Binding  uint32
	Stages   ShaderStage
	TypeName string
	// Writable is set for storage buffers declared read_write.
	Writable bool
}

// ShaderReflection is the reflection of a single shader stage.
type ShaderReflection struct {
	Stage            ShaderStage
	EntryPoint       string
	VertexAttributes []VertexShaderAttribute
	Resources        []ShaderResource
}
