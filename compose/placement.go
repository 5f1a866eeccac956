package compose

import "image"

// Place 计算前景左上角位置：x 由配置给定，y 底部对齐
// 不做越界检查，越界在混合时报 ErrOutOfBounds
func Place(background, foreground image.Point, xOffset int) image.Point {
	return image.Pt(xOffset, background.Y-foreground.Y)
}

// PlacementRect 前景在背景上占据的区域 [y, y+fgH) × [x, x+fgW)
func PlacementRect(at, foreground image.Point) image.Rectangle {
	return image.Rectangle{Min: at, Max: at.Add(foreground)}
}
