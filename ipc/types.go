// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

// Method is the wire name of one of the fixed set of requests the
// parent may send. There is no open-ended dispatch: a loader or
// editor process that receives any other method name must reply with
// a protocol-error Response.
type Method string

const (
	// MethodInitLoader starts a loader session. Carries the
	// encoded-input memory-file descriptor (as ancillary data) plus
	// the request's MIME and DecodeOptions.
	MethodInitLoader Method = "init_loader"

	// MethodNextFrame advances the loader's internal frame cursor by
	// one and returns the next frame, honoring the session's loop
	// policy.
	MethodNextFrame Method = "next_frame"

	// MethodSpecificFrame requests a frame by index without advancing
	// the sequential cursor.
	MethodSpecificFrame Method = "specific_frame"

	// MethodTearDown asks the child to shut down cleanly. Sent
	// best-effort on cancellation and on handle release; the parent
	// does not wait indefinitely for a reply.
	MethodTearDown Method = "tear_down"

	// MethodInitEditor starts an encoder session. Carries MIME and
	// EncodeOptions.
	MethodInitEditor Method = "init_editor"

	// MethodAddFrame appends one frame's pixel data to the encoder's
	// pending output. May be sent more than once per session.
	MethodAddFrame Method = "add_frame"

	// MethodEncode finalizes the encoder session and returns the
	// single encoded byte payload.
	MethodEncode Method = "encode"
)

// Request is a CBOR-encoded message from the parent to a sandboxed
// loader or editor process. RequestID is monotonically increasing
// within a session; a Response echoes it so the parent can detect a
// mismatched reply.
type Request struct {
	Method    Method `cbor:"method"`
	RequestID uint64 `cbor:"request_id"`

	// MIME is the MIME type the session was opened for. Present on
	// MethodInitLoader and MethodInitEditor.
	MIME string `cbor:"mime,omitempty"`

	// DecodeOptions carries the loader session's decode-time options.
	// Present on MethodInitLoader.
	DecodeOptions *DecodeOptions `cbor:"decode_options,omitempty"`

	// EncodeOptions carries the creator session's encode-time
	// options. Present on MethodInitEditor.
	EncodeOptions *EncodeOptions `cbor:"encode_options,omitempty"`

	// FrameIndex selects a frame by position. Present on
	// MethodSpecificFrame.
	FrameIndex uint32 `cbor:"frame_index,omitempty"`

	// Frame carries one frame's geometry and memory format for
	// MethodAddFrame. The frame's pixel buffer travels as ancillary
	// data alongside this request, not inline in the CBOR payload.
	Frame *FrameDescriptor `cbor:"frame,omitempty"`
}

// DecodeOptions are the loader-session options negotiated at
// MethodInitLoader.
type DecodeOptions struct {
	// AcceptedFormats is the bitset (see memformat.Selection) of
	// memory formats the parent is prepared to accept, carried as its
	// raw uint32 value to avoid an import cycle between ipc and
	// memformat.
	AcceptedFormats uint32 `cbor:"accepted_formats"`

	// ApplyTransformations instructs the loader to bake EXIF
	// orientation into the returned buffers. Defaults to true; the
	// caller decides at the façade layer, which always sends an
	// explicit value.
	ApplyTransformations bool `cbor:"apply_transformations"`

	// LoopAnimation selects the loop policy for MethodNextFrame: true
	// cycles frames indefinitely, false exhausts after frame_count
	// calls.
	LoopAnimation bool `cbor:"loop_animation"`

	// MaxWidth and MaxHeight are optional scaling hints; zero means
	// unconstrained.
	MaxWidth  uint32 `cbor:"max_width,omitempty"`
	MaxHeight uint32 `cbor:"max_height,omitempty"`
}

// EncodeOptions are the creator-session options negotiated at
// MethodInitEditor.
type EncodeOptions struct {
	Quality     uint8  `cbor:"quality,omitempty"`
	Compression uint8  `cbor:"compression,omitempty"`
	ICCProfile  []byte `cbor:"icc_profile,omitempty"`
}

// FrameDescriptor carries one frame's geometry alongside its
// ancillary-data pixel buffer, both on MethodAddFrame (parent to
// child) and as Response.Frame on next_frame/specific_frame replies
// (child to parent).
type FrameDescriptor struct {
	Width  uint32 `cbor:"width"`
	Height uint32 `cbor:"height"`
	Stride uint32 `cbor:"stride"`

	// Format is the memory format tag, the raw value of
	// memformat.Format.
	Format uint8 `cbor:"format"`

	// DelayMicros is the display delay before the next frame; 0 means
	// a still image.
	DelayMicros uint64 `cbor:"delay_micros,omitempty"`

	// CICP is the optional four-value color description per
	// ITU-T H.273, carried opaquely end to end.
	CICP *CICP `cbor:"cicp,omitempty"`
}

// CICP is the Coding-Independent Code Point color description
// quadruple.
type CICP struct {
	ColorPrimaries          uint8 `cbor:"color_primaries"`
	TransferCharacteristics uint8 `cbor:"transfer_characteristics"`
	MatrixCoefficients      uint8 `cbor:"matrix_coefficients"`
	VideoFullRangeFlag      bool  `cbor:"video_full_range_flag"`
}

// Response is a CBOR-encoded reply from a loader or editor process to
// the parent. RequestID mirrors the Request it answers.
type Response struct {
	RequestID uint64 `cbor:"request_id"`
	OK        bool   `cbor:"ok"`

	// Error is a human-readable, unstructured diagnostic, present when
	// OK is false. The parent normalizes every failure kind (seal
	// mismatch, truncated message, rlimit exceeded, or a loader's own
	// reported error) to one FAILED condition at the façade boundary;
	// this string is carried through for logging only.
	Error string `cbor:"error,omitempty"`

	// NoMoreFrames is set on a next_frame/specific_frame reply when
	// the loop policy has exhausted the frame sequence. OK is true in
	// this case — it is not a failure.
	NoMoreFrames bool `cbor:"no_more_frames,omitempty"`

	// ImageInfo answers MethodInitLoader.
	ImageInfo *ImageInfo `cbor:"image_info,omitempty"`

	// Frame answers MethodNextFrame / MethodSpecificFrame. Its pixel
	// buffer travels as ancillary data alongside this response.
	Frame *FrameDescriptor `cbor:"frame,omitempty"`

	// EditorCapabilities answers MethodInitEditor.
	EditorCapabilities *EditorCapabilities `cbor:"editor_capabilities,omitempty"`

	// Applied reports, for MethodAddFrame or MethodInitEditor, whether
	// a best-effort option (ICC profile, metadata) had effect.
	Applied bool `cbor:"applied,omitempty"`

	// EncodedSize is the byte length of the sealed output descriptor
	// answering MethodEncode; the descriptor itself travels as
	// ancillary data.
	EncodedSize uint64 `cbor:"encoded_size,omitempty"`
}

// ImageInfo answers MethodInitLoader: the loader's report of what it
// detected in the encoded input.
type ImageInfo struct {
	MIME         string            `cbor:"mime"`
	Width        uint32            `cbor:"width"`
	Height       uint32            `cbor:"height"`
	Orientation  uint8             `cbor:"orientation"`
	Metadata     map[string]string `cbor:"metadata,omitempty"`
	MetadataKeys []string          `cbor:"metadata_keys,omitempty"`

	// FrameCount is the number of frames the loader can produce; 0
	// means unknown or streaming (the parent must call next_frame
	// until NoMoreFrames rather than precount).
	FrameCount uint32 `cbor:"frame_count"`

	// SupportedMethods lists every Method this loader accepts,
	// matching the compat version it was selected under.
	SupportedMethods []Method `cbor:"supported_methods,omitempty"`
}

// EditorCapabilities answers MethodInitEditor: what optional inputs
// this encoder actually honors.
type EditorCapabilities struct {
	HonorsICCProfile  bool `cbor:"honors_icc_profile"`
	HonorsQuality     bool `cbor:"honors_quality"`
	HonorsCompression bool `cbor:"honors_compression"`
	HonorsMetadata    bool `cbor:"honors_metadata"`
}
