// SPDX-License-Identifier: EPL-2.0

// Package pcm decodes audio files into float32 sample streams and encodes
// them back to WAV. The offline backend uses it to feed capture ports from a
// file and to record playback ports.
//
// Every stage implements [Source]:
//
//	src, err := pcm.Open("in.ogg", nil)
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	rs, err := pcm.NewResampler(src, 48000)
//	if err != nil {
//		return err
//	}
//	blocks := pcm.NewBlockReader(rs)
//
// Samples are interleaved float32 values in [-1, 1]. Integer formats are
// normalised by their bit depth; [FloatToInt] goes the other way.
package pcm
