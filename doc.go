/*
Package ktx2 parses KTX2 texture containers and prepares their mip levels for
GPU upload.

A container starts with a 12-byte identifier, a fixed header, an index of the
data format descriptor (DFD), key/value data (KVD) and supercompression global
data (SGD) regions, and a level index. Parse validates all of it against the
buffer length and maps the Vulkan format id to a GPU texture format.

Level payloads may be stored as-is, Zstd-compressed, or as Basis Universal
(ETC1S/UASTC) data that an external transcoder turns into a block format the
device supports. Resolve hides these cases behind a shared CodecService and
returns one ResolvedLevel per mip. PlanUpload then pads rows to the 256-byte
copy pitch that buffer-to-texture copies require.

The package also writes containers (None or Zstd), caches resolved levels in
LZ4-compressed form and decodes BC1-BC5 levels to RGBA on the CPU for devices
without BC support.
*/
package ktx2
