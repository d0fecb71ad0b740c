package engine

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// streamSalt 第二个种子字的盐
const streamSalt = "\x00maskpack-stream"

// RandFunc 返回 [0,1) 的随机数
type RandFunc func() float64

// SeededRandom 由字符串种子得到确定性随机序列
// 相同种子产生相同序列，不同种子之间不共享状态
func SeededRandom(seed string) RandFunc {
	hi := xxhash.Sum64String(seed)
	lo := xxhash.Sum64String(seed + streamSalt)
	return rand.New(rand.NewPCG(hi, lo)).Float64
}
