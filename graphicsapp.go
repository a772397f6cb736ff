package vkg

import (
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// GraphicsApp brings up everything needed to run compute work and draw its
// result into a window: instance, surface, a device with one queue family
// able to do graphics, compute and present, the swapchain, a colour-only
// render pass, framebuffers and one pre-recorded command buffer per
// swapchain image.
//
// Frames are drawn one at a time. The caller acquires an image, submits it,
// presents it and waits for the present queue before starting the next one,
// so a single pair of semaphores is enough.
//
// See https://vulkan-tutorial.com/ for a good walkthrough of what this code does.
type GraphicsApp struct {
	Instance *Instance
	App      *App

	Window    Window
	VKSurface vk.Surface

	Device         *Device
	PhysicalDevice *PhysicalDevice
	QueueFamily    *QueueFamily

	GraphicsQueue *Queue
	ComputeQueue  *Queue
	PresentQueue  *Queue
	PipelineCache *PipelineCache

	GraphicsCommandPool    *CommandPool
	GraphicsCommandBuffers []*CommandBuffer

	// GraphicsPipelineConfig describes the single pipeline used to draw.
	GraphicsPipelineConfig *GraphicsPipelineConfig
	GraphicsPipeline       vk.Pipeline

	DefaultNumSwapchainImages int

	// ClearColor is the colour every frame starts from.
	ClearColor [4]float32

	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore

	screenExtent vk.Extent2D

	Swapchain           *Swapchain
	SwapchainImages     []*Image
	SwapchainImageViews []*ImageView
	Framebuffers        []vk.Framebuffer

	VKRenderPass vk.RenderPass

	// MakeCommandBuffer records the draw commands for one swapchain image.
	// The buffer is already begun inside the render pass with viewport and
	// scissor set; it is recorded once and replayed every frame.
	MakeCommandBuffer func(command *CommandBuffer, image int) error
}

// NewGraphicsApp creates a new graphics app with the given name and version
func NewGraphicsApp(name string, version Version) *GraphicsApp {
	return &GraphicsApp{
		App:        &App{Name: name, Version: version, EngineName: "vkg"},
		ClearColor: [4]float32{0, 0, 0, 1},
	}
}

// EnableDebugging enables the validation layer. It must be called before Init.
func (p *GraphicsApp) EnableDebugging() bool {
	if p.Instance != nil {
		return false
	}
	p.App.EnableDebugging()
	return true
}

// SetWindow sets the window the app presents into. It must be called before Init.
func (p *GraphicsApp) SetWindow(window Window) error {
	if p.Instance != nil {
		return errors.New("window must be set prior to initialization")
	}

	supported, err := SupportedExtensions()
	if err != nil {
		return err
	}
	for _, ext := range window.GetRequiredInstanceExtensions() {
		if !contains(supported, ext) {
			return errors.Errorf("extension '%s' required by the window is not supported by vulkan", ext)
		}
		p.App.EnableExtension(ext)
	}

	p.Window = window
	p.refreshScreenExtent()
	return nil
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}

// NumFramebuffers returns the number of framebuffers that have been created
func (p *GraphicsApp) NumFramebuffers() int {
	return len(p.Framebuffers)
}

// Init creates the instance, surface and device, and picks the queues.
func (p *GraphicsApp) Init() error {
	if p.Window == nil {
		return errors.New("no window set")
	}

	var err error
	p.Instance, err = p.App.CreateInstance()
	if err != nil {
		return err
	}
	if contains(p.App.EnabledExtensions, "VK_EXT_debug_report") {
		if err := p.Instance.UseDefaultDebugCallback(); err != nil {
			logger.Warn("debug callback unavailable", zap.Error(err))
		}
	}

	surface, err := p.Window.CreateWindowSurface(p.Instance.VKInstance, nil)
	if err != nil {
		return errors.Wrap(err, "create window surface")
	}
	p.VKSurface = vk.SurfaceFromPointer(surface)

	physicalDevices, err := p.Instance.PhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "error getting devices")
	}
	if len(physicalDevices) == 0 {
		return errors.New("no devices found")
	}

	for _, pd := range physicalDevices {
		families, err := pd.QueueFamilies()
		if err != nil {
			return errors.Wrapf(err, "unable to load queue families of %s", pd)
		}
		suitable := families.FilterGraphicsComputeAndPresent(p.VKSurface)
		if len(suitable) > 0 {
			p.PhysicalDevice = pd
			p.QueueFamily = suitable[0]
			break
		}
		logger.Info("skipping device without a graphics, compute and present queue family", zap.String("device", pd.String()))
	}
	if p.PhysicalDevice == nil {
		return errors.New("no device has a queue family supporting graphics, compute and present")
	}

	p.Device, err = p.PhysicalDevice.CreateLogicalDeviceWithOptions(QueueFamilySlice{p.QueueFamily}, &CreateDeviceOptions{
		EnabledExtensions: []string{"VK_KHR_swapchain"},
		QueuesPerFamily:   3,
	})
	if err != nil {
		return errors.Wrap(err, "unable to create device")
	}

	p.GraphicsQueue = p.Device.GetQueueAt(p.QueueFamily, 0)
	p.ComputeQueue = p.Device.GetQueueAt(p.QueueFamily, 1)
	p.PresentQueue = p.Device.GetQueueAt(p.QueueFamily, 2)

	logger.Info("device created",
		zap.String("device", p.PhysicalDevice.String()),
		zap.Int("family", p.QueueFamily.Index),
		zap.Int("queues", p.QueueFamily.CreatedCount))

	p.DefaultNumSwapchainImages, err = p.Device.DefaultNumSwapchainImages(p.VKSurface)
	if err != nil {
		return err
	}

	p.GraphicsCommandPool, err = p.Device.CreateCommandPool(p.QueueFamily)
	if err != nil {
		return err
	}

	p.PipelineCache, err = p.Device.CreatePipelineCache()
	return err
}

// CreateGraphicsPipelineConfig creates a graphic pipeline configuration for customization
func (p *GraphicsApp) CreateGraphicsPipelineConfig() *GraphicsPipelineConfig {
	p.GraphicsPipelineConfig = p.Device.CreateGraphicsPipelineConfig()
	return p.GraphicsPipelineConfig
}

// PrepareToDraw creates the swapchain dependent objects and records one
// command buffer per image. It must be called after Init and after
// MakeCommandBuffer and GraphicsPipelineConfig are set.
func (p *GraphicsApp) PrepareToDraw() error {
	if p.MakeCommandBuffer == nil {
		return errors.New("no function to make command buffers has been configured")
	}
	if p.GraphicsPipelineConfig == nil {
		return errors.New("no graphics pipeline has been configured")
	}

	if err := p.createSyncObjects(); err != nil {
		return err
	}
	return p.prepareSwapchain()
}

func (p *GraphicsApp) prepareSwapchain() error {
	steps := []func() error{
		p.createSwapchainAndImages,
		p.createRenderer,
		p.createGraphicsPipeline,
		p.createFramebuffers,
		p.createCommandBuffers,
		p.fillCmdBuffers,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (p *GraphicsApp) unprepareSwapchain() {
	p.destroyCommandBuffers()
	p.destroyFramebuffers()
	p.destroyGraphicsPipeline()
	p.destroyRenderer()
	p.destroySwapchainAndImages()
}

func (p *GraphicsApp) fillCmdBuffers() error {
	for i, cb := range p.GraphicsCommandBuffers {
		if err := cb.BeginReusable(); err != nil {
			return err
		}
		cb.CmdBeginRenderPass(p.VKRenderPass, p.Framebuffers[i], p.Swapchain.Extent, p.ClearColor)
		cb.CmdSetViewportAndScissor(p.Swapchain.Extent)
		cb.CmdBindGraphicsPipeline(p.GraphicsPipeline)
		if err := p.MakeCommandBuffer(cb, i); err != nil {
			return errors.Wrapf(err, "record command buffer %d", i)
		}
		cb.CmdEndRenderPass()
		if err := cb.End(); err != nil {
			return err
		}
	}
	return nil
}

// RecreateSwapchain rebuilds everything that depends on the swapchain. The
// semaphores are recreated too since a failed acquire or submit can leave
// them signalled.
func (p *GraphicsApp) RecreateSwapchain() error {
	if err := p.Device.WaitIdle(); err != nil {
		return err
	}
	p.refreshScreenExtent()
	p.unprepareSwapchain()
	p.destroySyncObjects()
	if err := p.createSyncObjects(); err != nil {
		return err
	}
	logger.Info("recreating swapchain", zap.Uint32("width", p.screenExtent.Width), zap.Uint32("height", p.screenExtent.Height))
	return p.prepareSwapchain()
}

// AcquireNextImage waits at most timeout for the next image to draw into.
func (p *GraphicsApp) AcquireNextImage(timeout time.Duration) (uint32, error) {
	return p.Swapchain.AcquireNextImage(timeout, p.imageAvailable)
}

// SubmitFrame submits the command buffer recorded for image on the graphics
// queue. It waits for the image to be available and for every semaphore in
// wait at the matching stage of waitStages.
func (p *GraphicsApp) SubmitFrame(image uint32, wait []vk.Semaphore, waitStages []vk.PipelineStageFlags) error {
	if int(image) >= len(p.GraphicsCommandBuffers) {
		return errors.Errorf("image %d out of range", image)
	}
	sync := SubmitSync{
		Wait:       append([]vk.Semaphore{p.imageAvailable}, wait...),
		WaitStages: append([]vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}, waitStages...),
		Signal:     []vk.Semaphore{p.renderFinished},
	}
	return p.GraphicsQueue.Submit(sync, p.GraphicsCommandBuffers[image])
}

// Present presents image once its rendering is finished.
func (p *GraphicsApp) Present(image uint32) error {
	return p.PresentQueue.Present(p.Swapchain, image, p.renderFinished)
}

func (p *GraphicsApp) refreshScreenExtent() {
	if p.Window != nil {
		width, height := p.Window.GetFramebufferSize()
		p.screenExtent = vk.Extent2D{Width: uint32(width), Height: uint32(height)}
	}
}

// GetScreenExtent gets the current screen extents
func (p *GraphicsApp) GetScreenExtent() vk.Extent2D {
	return p.screenExtent
}

// Destroy tears down the graphics application. It waits for the device to
// go idle first.
func (p *GraphicsApp) Destroy() {
	if p.Device != nil {
		if err := p.Device.WaitIdle(); err != nil {
			logger.Error("wait idle before destroy", zap.Error(err))
		}
		if p.Swapchain != nil {
			p.unprepareSwapchain()
		}
		if p.GraphicsPipelineConfig != nil {
			p.GraphicsPipelineConfig.Destroy()
		}
		p.destroySyncObjects()
		if p.PipelineCache != nil {
			p.PipelineCache.Destroy()
		}
		if p.GraphicsCommandPool != nil {
			p.GraphicsCommandPool.Destroy()
		}
		p.Device.Destroy()
	}
	if p.Instance != nil {
		if p.VKSurface != vk.NullSurface {
			vk.DestroySurface(p.Instance.VKInstance, p.VKSurface, nil)
		}
		p.Instance.Destroy()
	}
}

// VKRenderPassCreateInfo describes a single subpass clearing and storing one
// colour attachment that ends up ready to present.
func (p *GraphicsApp) VKRenderPassCreateInfo() vk.RenderPassCreateInfo {
	attachmentDescriptions := []vk.AttachmentDescription{{
		Format:         p.Swapchain.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpassDescriptions := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
	}}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      subpassDescriptions,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
}

func (p *GraphicsApp) createRenderer() error {
	renderPassCreateInfo := p.VKRenderPassCreateInfo()

	var renderPass vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(p.Device.VKDevice, &renderPassCreateInfo, nil, &renderPass))
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}
	p.VKRenderPass = renderPass
	return nil
}

func (p *GraphicsApp) destroyRenderer() {
	vk.DestroyRenderPass(p.Device.VKDevice, p.VKRenderPass, nil)
	p.VKRenderPass = vk.NullRenderPass
}

func (p *GraphicsApp) createGraphicsPipeline() error {
	pipeline, err := p.Device.CreateGraphicsPipeline(p.PipelineCache, p.GraphicsPipelineConfig, p.VKRenderPass, p.Swapchain.Extent)
	if err != nil {
		return err
	}
	p.GraphicsPipeline = pipeline
	return nil
}

func (p *GraphicsApp) destroyGraphicsPipeline() {
	vk.DestroyPipeline(p.Device.VKDevice, p.GraphicsPipeline, nil)
}

func (p *GraphicsApp) createSwapchainAndImages() error {
	options := &CreateSwapchainOptions{
		ActualSize:                p.GetScreenExtent(),
		DesiredNumSwapchainImages: p.DefaultNumSwapchainImages,
	}

	swapchain, err := p.Device.CreateSwapchain(p.VKSurface, p.GraphicsQueue, p.PresentQueue, options)
	if err != nil {
		return err
	}
	p.Swapchain = swapchain

	images, err := swapchain.GetImages()
	if err != nil {
		return err
	}
	p.SwapchainImages = images

	p.SwapchainImageViews = make([]*ImageView, 0, len(images))
	for _, image := range images {
		view, err := image.CreateImageView()
		if err != nil {
			return err
		}
		p.SwapchainImageViews = append(p.SwapchainImageViews, view)
	}

	logger.Debug("swapchain created",
		zap.Int("images", len(images)),
		zap.Uint32("width", swapchain.Extent.Width),
		zap.Uint32("height", swapchain.Extent.Height))
	return nil
}

func (p *GraphicsApp) destroySwapchainAndImages() {
	for _, views := range p.SwapchainImageViews {
		views.Destroy()
	}
	p.SwapchainImageViews = nil
	p.SwapchainImages = nil
	p.Swapchain.Destroy()
	p.Swapchain = nil
}

func (p *GraphicsApp) createFramebuffers() error {
	p.Framebuffers = make([]vk.Framebuffer, 0, len(p.SwapchainImageViews))
	for _, view := range p.SwapchainImageViews {
		attachments := []vk.ImageView{view.VKImageView}
		fbCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      p.VKRenderPass,
			Layers:          1,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           p.Swapchain.Extent.Width,
			Height:          p.Swapchain.Extent.Height,
		}
		var fb vk.Framebuffer
		err := vk.Error(vk.CreateFramebuffer(p.Device.VKDevice, &fbCreateInfo, nil, &fb))
		if err != nil {
			return errors.Wrap(err, "create framebuffer")
		}
		p.Framebuffers = append(p.Framebuffers, fb)
	}
	return nil
}

func (p *GraphicsApp) destroyFramebuffers() {
	for i := range p.Framebuffers {
		vk.DestroyFramebuffer(p.Device.VKDevice, p.Framebuffers[i], nil)
	}
	p.Framebuffers = nil
}

func (p *GraphicsApp) createCommandBuffers() error {
	var err error
	p.GraphicsCommandBuffers, err = p.GraphicsCommandPool.AllocateBuffers(len(p.Framebuffers), vk.CommandBufferLevelPrimary)
	return err
}

func (p *GraphicsApp) destroyCommandBuffers() {
	p.GraphicsCommandPool.FreeBuffers(p.GraphicsCommandBuffers)
	p.GraphicsCommandBuffers = nil
}

func (p *GraphicsApp) destroySyncObjects() {
	if p.imageAvailable != vk.NullSemaphore {
		p.Device.VKDestroySemaphore(p.imageAvailable)
		p.imageAvailable = vk.NullSemaphore
	}
	if p.renderFinished != vk.NullSemaphore {
		p.Device.VKDestroySemaphore(p.renderFinished)
		p.renderFinished = vk.NullSemaphore
	}
}

func (p *GraphicsApp) createSyncObjects() error {
	var err error
	if p.imageAvailable, err = p.Device.VKCreateSemaphore(); err != nil {
		return err
	}
	p.renderFinished, err = p.Device.VKCreateSemaphore()
	return err
}
