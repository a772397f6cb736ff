package sph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	vkg "github.com/celer/vksph"
)

type uploadFixture struct {
	staging  *fakeStaging
	commands *fakeCommands
	queue    *fakeQueue
	uploader *Uploader
}

func newUploadFixture() *uploadFixture {
	f := &uploadFixture{
		staging:  &fakeStaging{},
		commands: &fakeCommands{},
		queue:    &fakeQueue{},
	}
	f.uploader = &Uploader{
		Staging:  f.staging,
		Commands: f.commands,
		Queue:    f.queue,
		Logger:   zap.NewNop(),
	}
	return f
}

func TestUploadInitial(t *testing.T) {
	f := newUploadFixture()
	l := NewLayout(1000)
	g := DefaultGrid()
	target := &vkg.Buffer{Size: l.Size}

	require.NoError(t, f.uploader.UploadInitial(target, l, g))

	require.Len(t, f.staging.created, 1)
	staging := f.staging.created[0]
	assert.True(t, staging.destroyed)
	assert.False(t, staging.mapped)
	assert.Equal(t, l.Size, staging.buffer.Size)

	// The staging contents are exactly what reaches the device.
	for _, a := range []Array{Velocity, Force, Density, Pressure} {
		for _, b := range l.Slice(staging.data, a) {
			require.Zero(t, b, "%s not zeroed", a)
		}
	}
	assert.Equal(t, g.Position(999), readVec2(l.Slice(staging.data, Position), 999))

	require.Len(t, f.commands.allocated, 1)
	rec := f.commands.allocated[0]
	assert.Equal(t, vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit), rec.usage)
	assert.True(t, rec.ended)
	require.Len(t, rec.ops, 2)
	assert.Equal(t, opCopy, rec.ops[0].kind)
	assert.Equal(t, l.Size, rec.ops[0].copySize)
	assert.Same(t, staging.buffer, rec.ops[0].src)
	assert.Same(t, target, rec.ops[0].dst)
	assert.Equal(t, opBarrier, rec.ops[1].kind)
	assert.Equal(t, vkg.TransferToConsumers, rec.ops[1].barrier)

	require.Len(t, f.queue.submits, 1)
	require.Len(t, f.queue.buffers[0], 1)
	assert.Same(t, rec, f.queue.buffers[0][0])
	assert.Equal(t, 1, f.queue.waits)
	assert.Equal(t, 1, f.commands.freed)
}

func TestUploadInitialTargetTooSmall(t *testing.T) {
	f := newUploadFixture()
	l := NewLayout(10)

	err := f.uploader.UploadInitial(&vkg.Buffer{Size: l.Size - 4}, l, DefaultGrid())
	require.Error(t, err)
	assert.True(t, IsKind(err, SetupFailure))
	assert.Empty(t, f.staging.created)
}

func TestUploadInitialReleasesOnFailure(t *testing.T) {
	cases := []struct {
		name      string
		setup     func(f *uploadFixture)
		allocated int
	}{
		{"map", func(f *uploadFixture) { f.staging.mapErr = errInjected }, 0},
		{"allocate", func(f *uploadFixture) { f.commands.allocErr = errInjected }, 0},
		{"begin", func(f *uploadFixture) { f.commands.beginErr = errInjected }, 1},
		{"submit", func(f *uploadFixture) { f.queue.submitErr = errInjected }, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newUploadFixture()
			c.setup(f)
			l := NewLayout(64)

			err := f.uploader.UploadInitial(&vkg.Buffer{Size: l.Size}, l, DefaultGrid())
			require.Error(t, err)
			assert.True(t, IsKind(err, SetupFailure))
			assert.ErrorIs(t, err, errInjected)

			require.Len(t, f.staging.created, 1)
			assert.True(t, f.staging.created[0].destroyed)
			assert.Len(t, f.commands.allocated, c.allocated)
			assert.Equal(t, c.allocated, f.commands.freed)
		})
	}
}

func TestUploadInitialStagingFailure(t *testing.T) {
	f := newUploadFixture()
	f.staging.createErr = errInjected
	l := NewLayout(64)

	err := f.uploader.UploadInitial(&vkg.Buffer{Size: l.Size}, l, DefaultGrid())
	assert.True(t, IsKind(err, SetupFailure))
	assert.Empty(t, f.commands.allocated)
}
